// Package reconcile injects the client asset manifest into server bundles.
//
// The server compiler emits core.Placeholder wherever rendering code needs the
// manifest. The client build may run before or after the server build, so the
// placeholder is resolved from two places: while server modules are being
// transformed, if a manifest from an earlier client build is on disk, and in a
// sweep over the emitted server files once the client build has written its
// manifest. Both are no-ops when there is nothing to do, so either may run any
// number of times.
//
// A server bundle that inlined a manifest keeps it until it is rebuilt: a
// later client rebuild does not refresh it.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/jant/site/internal/adapters/fs"
	"github.com/jant/site/internal/config"
	"github.com/jant/site/internal/core"
	"github.com/jant/site/internal/logging"
)

const defaultConcurrency = 4

// Reconciler resolves the manifest placeholder for one resolved configuration.
type Reconciler struct {
	cfg         config.Resolved
	fs          fs.FileSystem
	logger      *zap.Logger
	concurrency int
}

func New(cfg config.Resolved, fsys fs.FileSystem, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		cfg:         cfg,
		fs:          fsys,
		logger:      logging.OrNop(logger).Named("inject-manifest"),
		concurrency: defaultConcurrency,
	}
}

// ReadManifest returns the client manifest's raw content. A missing, unreadable
// or empty manifest is reported as not available.
func (r *Reconciler) ReadManifest() (string, bool) {
	data, err := r.fs.ReadFile(r.cfg.ManifestPath)
	if err != nil {
		r.logger.Debug("manifest not available", zap.String("path", r.cfg.ManifestPath), zap.Error(err))
		return "", false
	}
	if len(data) == 0 {
		r.logger.Debug("manifest is empty", zap.String("path", r.cfg.ManifestPath))
		return "", false
	}
	return string(data), true
}

// Transform inlines the manifest into a module compiled for a server target.
func (r *Reconciler) Transform(code, id string, target core.Target) core.TransformResult {
	unchanged := core.TransformResult{Code: code}

	if !target.SSR() {
		return unchanged
	}
	if !core.HasPlaceholderName(code) {
		return unchanged
	}

	content, ok := r.ReadManifest()
	if !ok {
		r.logger.Debug("deferring manifest injection", zap.String("module", id), zap.String("environment", target.Environment))
		return unchanged
	}

	newCode, count := core.ReplacePlaceholder(code, core.BuildReplacement(content))
	if count == 0 || newCode == code {
		return unchanged
	}

	r.logger.Debug("inlined manifest",
		zap.String("module", id),
		zap.String("environment", target.Environment),
		zap.Int("occurrences", count),
		zap.String("snapshot", core.HashContent([]byte(content))))

	return core.TransformResult{Code: newCode, Changed: true}
}
