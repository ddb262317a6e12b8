package devserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jant/site/internal/adapters/fs"
	"github.com/jant/site/internal/config"
	"github.com/jant/site/internal/core"
	"github.com/jant/site/internal/pipeline"
	"github.com/jant/site/internal/reconcile"
)

type devSite struct {
	root    string
	builder *pipeline.Builder
	order   []string
}

func newDevSite(t *testing.T) *devSite {
	t.Helper()
	root := t.TempDir()

	for rel, content := range map[string]string{
		"src/client.js": "console.log('v1');\n",
		"src/index.js":  `export const manifest = "__VITE_MANIFEST_CONTENT__";` + "\n",
	} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	cfg := config.Default()
	cfg.Environments["client"].Build.Manifest = true
	cfg.Environments["client"].Build.Input = []string{"src/client.js"}
	cfg.Environments["worker"] = &config.EnvironmentConfig{
		Consumer: core.ConsumerServer,
		Build:    config.BuildConfig{OutDir: "dist/worker", Input: []string{"src/index.js"}},
	}
	resolved, err := config.Resolve(cfg, root)
	require.NoError(t, err)

	fsys := fs.NewOSFileSystem()
	injector := reconcile.NewPlugin(reconcile.New(resolved, fsys, nil))
	builder := pipeline.NewBuilder(resolved, pipeline.EnvironmentsFromConfig(cfg, resolved), fsys, nil, injector, SSRReload{})

	return &devSite{root: root, builder: builder, order: []string{"worker", "client"}}
}

func (s *devSite) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func notified(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestRebuilderServerChangeReloads(t *testing.T) {
	s := newDevSite(t)
	_, err := s.builder.Build(context.Background(), s.order)
	require.NoError(t, err)

	hub := NewHub()
	ch := hub.Subscribe()
	r := NewRebuilder(s.builder, s.order, hub, nil)

	r.Handle(context.Background(), Change{"worker": {filepath.Join(s.root, "src", "index.js")}})

	assert.True(t, notified(ch))
	assert.False(t, core.HasPlaceholder(s.read(t, "dist/worker/index.js")))
}

func TestRebuilderClientChangeReloads(t *testing.T) {
	s := newDevSite(t)
	_, err := s.builder.Build(context.Background(), s.order)
	require.NoError(t, err)

	hub := NewHub()
	ch := hub.Subscribe()
	r := NewRebuilder(s.builder, s.order, hub, nil)

	r.Handle(context.Background(), Change{"client": {filepath.Join(s.root, "src", "client.js")}})
	assert.True(t, notified(ch))
}

// A client rebuild after the server bundle inlined a manifest leaves the
// server bundle on the older snapshot until the server is rebuilt.
func TestRebuilderClientOnlyRebuildKeepsOlderSnapshot(t *testing.T) {
	s := newDevSite(t)
	_, err := s.builder.Build(context.Background(), s.order)
	require.NoError(t, err)
	oldManifest := s.read(t, "dist/client/.vite/manifest.json")

	require.NoError(t, os.WriteFile(filepath.Join(s.root, "src", "client.js"), []byte("console.log('v2');\n"), 0644))
	r := NewRebuilder(s.builder, s.order, nil, nil)
	r.Handle(context.Background(), Change{"client": {filepath.Join(s.root, "src", "client.js")}})

	newManifest := s.read(t, "dist/client/.vite/manifest.json")
	require.NotEqual(t, oldManifest, newManifest)

	worker := s.read(t, "dist/worker/index.js")
	assert.Contains(t, worker, core.BuildReplacement(oldManifest))

	r.Handle(context.Background(), Change{"worker": {filepath.Join(s.root, "src", "index.js")}})
	assert.Contains(t, s.read(t, "dist/worker/index.js"), core.BuildReplacement(newManifest))
}

func TestRebuilderLogsFailures(t *testing.T) {
	s := newDevSite(t)
	require.NoError(t, os.Remove(filepath.Join(s.root, "src", "index.js")))

	hub := NewHub()
	ch := hub.Subscribe()
	NewRebuilder(s.builder, s.order, hub, nil).Handle(context.Background(), Change{"worker": {"src/index.js"}})

	assert.False(t, notified(ch))
}
