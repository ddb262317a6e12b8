package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jant/site/internal/adapters/cli"
	"github.com/jant/site/internal/devserver"
	"github.com/jant/site/internal/reconcile"
)

func newBuildCmd(a *app) *cobra.Command {
	var order []string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build every environment and inject the client manifest into server bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			buildOrder, err := splitOrder(a.cfg, order)
			if err != nil {
				return err
			}

			a.out.PrintHeader("Site Build")
			report := cli.NewReport(a.out, a.relative(a.resolved.OutputRoot))

			r := a.reconciler()
			injector := reconcile.NewPlugin(r)
			builder := a.builder(injector, devserver.SSRReload{})

			for _, name := range buildOrder {
				step := report.StartStep(fmt.Sprintf("Building %s", name))
				if _, err := builder.BuildEnvironment(cmd.Context(), name); err != nil {
					report.EndStep(step, false, err.Error())
					report.AddError(name, "Build failed", []string{err.Error()})
					report.Render()
					return fmt.Errorf("build failed: %w", err)
				}
				report.EndStep(step, true, "")
			}

			for _, f := range injector.PatchedFiles() {
				report.AddPatched(a.relative(f.Path))
			}
			if n := injector.InlinedModules(); n > 0 {
				a.out.PrintSuccess("Inlined manifest into %d module(s) while compiling", n)
			}

			addResidualWarnings(a, r, report)
			report.Render()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&order, "order", nil, "environments to build, in order (default from config)")
	return cmd
}

// addResidualWarnings reports server bundles that still reference the
// manifest placeholder. This is expected when the client was not built.
func addResidualWarnings(a *app, r *reconcile.Reconciler, report *cli.Report) {
	residuals, err := r.Scan()
	if err != nil {
		return
	}
	for _, res := range residuals {
		details := make([]string, 0, len(res.Lines))
		for _, line := range res.Lines {
			details = append(details, fmt.Sprintf("line %d", line))
		}
		report.AddWarning(a.relative(res.Path), "Unresolved client manifest placeholder", details)
	}
}
