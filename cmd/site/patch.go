package main

import (
	"github.com/spf13/cobra"

	"github.com/jant/site/internal/adapters/cli"
)

func newPatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "patch",
		Short: "Inject the client manifest into already emitted server bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.out.PrintHeader("Manifest Patch")
			report := cli.NewReport(a.out, a.relative(a.resolved.OutputRoot))

			r := a.reconciler()
			result := r.Patch(cmd.Context())
			if !result.ManifestAvailable {
				a.out.PrintWarning("No client manifest at %s, nothing to inject", a.relative(a.resolved.ManifestPath))
			}
			for _, f := range result.Files {
				report.AddPatched(a.relative(f.Path))
			}

			addResidualWarnings(a, r, report)
			report.Render()
			return nil
		},
	}
}
