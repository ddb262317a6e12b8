package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errUnresolved = errors.New("unresolved manifest placeholders")

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail if any server bundle still contains the manifest placeholder",
		RunE: func(cmd *cobra.Command, args []string) error {
			residuals, err := a.reconciler().Scan()
			if err != nil {
				return err
			}

			if len(residuals) == 0 {
				a.out.PrintSuccess("No unresolved manifest placeholders")
				return nil
			}

			total := 0
			for _, res := range residuals {
				a.out.PrintError("%s: %d occurrence(s), lines %v", a.relative(res.Path), res.Occurrences, res.Lines)
				total += res.Occurrences
			}
			return fmt.Errorf("%w: %d in %d file(s)", errUnresolved, total, len(residuals))
		},
	}
}
