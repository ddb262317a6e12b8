package reconcile

import (
	"context"
	iofs "io/fs"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jant/site/internal/core"
)

// PatchedFile is a server script rewritten in place.
type PatchedFile struct {
	Path         string
	Replacements int
}

// PatchResult summarises one sweep. Snapshot fingerprints the manifest that
// was inlined; it is empty when no manifest was available.
type PatchResult struct {
	ManifestAvailable bool
	Snapshot          string
	Files             []PatchedFile
	Replacements      int
}

// WriteBundle runs the sweep after an environment finished writing its files.
// Only the client environment produces a manifest, so other environments are
// ignored.
func (r *Reconciler) WriteBundle(ctx context.Context, environment string) PatchResult {
	if environment != core.ClientEnvironment {
		return PatchResult{}
	}
	return r.Patch(ctx)
}

// Patch replaces the placeholder in every emitted server script under the
// output root. Files already patched are left untouched.
func (r *Reconciler) Patch(ctx context.Context) PatchResult {
	content, ok := r.ReadManifest()
	if !ok {
		return PatchResult{}
	}

	result := PatchResult{
		ManifestAvailable: true,
		Snapshot:          core.HashContent([]byte(content)),
	}
	replacement := core.BuildReplacement(content)

	dirs := r.serverDirs()
	if len(dirs) == 0 {
		return result
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, dir := range dirs {
		g.Go(func() error {
			patched := r.patchDir(gctx, dir, replacement)
			mu.Lock()
			result.Files = append(result.Files, patched...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	for _, f := range result.Files {
		result.Replacements += f.Replacements
	}

	if len(result.Files) > 0 {
		r.logger.Info("patched server bundles",
			zap.Int("files", len(result.Files)),
			zap.Int("replacements", result.Replacements),
			zap.String("snapshot", result.Snapshot))
	}

	return result
}

// serverDirs lists the output root's subdirectories except the client one.
// A missing output root yields nothing.
func (r *Reconciler) serverDirs() []string {
	entries, err := r.fs.ReadDir(r.cfg.OutputRoot)
	if err != nil {
		r.logger.Debug("output root not readable", zap.String("path", r.cfg.OutputRoot), zap.Error(err))
		return nil
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == r.cfg.ClientDirName {
			continue
		}
		dirs = append(dirs, filepath.Join(r.cfg.OutputRoot, entry.Name()))
	}
	return dirs
}

func (r *Reconciler) patchDir(ctx context.Context, dir, replacement string) []PatchedFile {
	var patched []PatchedFile

	_ = r.fs.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Directories may disappear while another target rebuilds.
			r.logger.Debug("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !core.HasExtension(d.Name(), r.cfg.ScriptExt) {
			return nil
		}

		if n, ok := r.patchFile(path, replacement); ok {
			patched = append(patched, PatchedFile{Path: path, Replacements: n})
		}
		return nil
	})

	return patched
}

func (r *Reconciler) patchFile(path, replacement string) (int, bool) {
	data, err := r.fs.ReadFile(path)
	if err != nil {
		r.logger.Debug("skipping unreadable file", zap.String("path", path), zap.Error(err))
		return 0, false
	}

	code := string(data)
	if !core.HasPlaceholder(code) {
		return 0, false
	}

	newCode, count := core.ReplacePlaceholder(code, replacement)

	perm := iofs.FileMode(0644)
	if info, err := r.fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := r.fs.WriteFile(path, []byte(newCode), perm); err != nil {
		r.logger.Warn("failed to write patched file", zap.String("path", path), zap.Error(err))
		return 0, false
	}

	r.logger.Debug("patched file", zap.String("path", path), zap.Int("occurrences", count))
	return count, true
}
