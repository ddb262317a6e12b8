package reconcile

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jant/site/internal/core"
)

// PluginName identifies the plugin in pipeline logs.
const PluginName = "inject-manifest"

// Plugin adapts a Reconciler to the build pipeline's hooks and remembers what
// it did for reporting.
type Plugin struct {
	r       *Reconciler
	inlined atomic.Int64
	mu      sync.Mutex
	patches []PatchResult
}

// NewPlugin wraps r for registration with a pipeline.Builder.
func NewPlugin(r *Reconciler) *Plugin {
	return &Plugin{r: r}
}

func (p *Plugin) Name() string {
	return PluginName
}

// Transform inlines the manifest into server modules and counts the modules
// it changed.
func (p *Plugin) Transform(ctx context.Context, code, id string, target core.Target) core.TransformResult {
	result := p.r.Transform(code, id, target)
	if result.Changed {
		p.inlined.Add(1)
	}
	return result
}

// WriteBundle runs the post-write sweep and records its result when a manifest
// was available.
func (p *Plugin) WriteBundle(ctx context.Context, environment string) {
	result := p.r.WriteBundle(ctx, environment)
	if !result.ManifestAvailable {
		return
	}
	p.mu.Lock()
	p.patches = append(p.patches, result)
	p.mu.Unlock()
}

// InlinedModules counts modules resolved at transform time.
func (p *Plugin) InlinedModules() int {
	return int(p.inlined.Load())
}

// PatchedFiles lists every file rewritten by the sweeps so far.
func (p *Plugin) PatchedFiles() []PatchedFile {
	p.mu.Lock()
	defer p.mu.Unlock()

	var files []PatchedFile
	for _, patch := range p.patches {
		files = append(files, patch.Files...)
	}
	return files
}
