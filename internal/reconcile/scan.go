package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jant/site/internal/adapters/fs"
	"github.com/jant/site/internal/core"
)

type Residual struct {
	Path        string
	Occurrences int
	Lines       []int
}

// Scan reports server scripts that still contain the placeholder.
func (r *Reconciler) Scan() ([]Residual, error) {
	if _, err := r.fs.ReadDir(r.cfg.OutputRoot); err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var residuals []Residual
	for _, dir := range r.serverDirs() {
		files, err := fs.FindFilesByExtension(r.fs, dir, r.cfg.ScriptExt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
		}

		for _, file := range files {
			data, err := r.fs.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", file, err)
			}
			code := string(data)
			if !core.HasPlaceholder(code) {
				continue
			}
			residuals = append(residuals, Residual{
				Path:        file,
				Occurrences: strings.Count(code, core.Placeholder),
				Lines:       placeholderLines(code),
			})
		}
	}

	sort.Slice(residuals, func(i, j int) bool {
		return residuals[i].Path < residuals[j].Path
	})
	return residuals, nil
}

func placeholderLines(code string) []int {
	var lines []int
	for i, line := range strings.Split(code, "\n") {
		if strings.Contains(line, core.Placeholder) {
			lines = append(lines, i+1)
		}
	}
	return lines
}
