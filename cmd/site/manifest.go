package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jant/site/internal/core"
)

func newManifestCmd(a *app) *cobra.Command {
	var entriesOnly bool

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the client manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, ok := a.reconciler().ReadManifest()
			if !ok {
				return fmt.Errorf("no client manifest at %s, build the client first", a.relative(a.resolved.ManifestPath))
			}

			entries, err := core.ManifestEntries(content)
			if err != nil {
				return fmt.Errorf("failed to read manifest: %w", err)
			}
			if entriesOnly {
				entries = core.EntryChunks(entries)
			}

			a.out.PrintHeader(fmt.Sprintf("Manifest (snapshot %s)", core.HashContent([]byte(content))))
			for _, entry := range entries {
				a.out.PrintStep("%s → %s", entry.Key, entry.Chunk.File)
				if len(entry.Chunk.CSS) > 0 {
					a.out.PrintFile("css: " + strings.Join(entry.Chunk.CSS, ", "))
				}
				if len(entry.Chunk.Imports) > 0 {
					a.out.PrintFile("imports: " + strings.Join(entry.Chunk.Imports, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&entriesOnly, "entries", false, "only list entry chunks")
	return cmd
}
