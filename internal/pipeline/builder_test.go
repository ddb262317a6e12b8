package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jant/site/internal/adapters/fs"
	"github.com/jant/site/internal/config"
	"github.com/jant/site/internal/core"
	"github.com/jant/site/internal/reconcile"
)

const serverEntry = `import { createApp } from "./app.js";
const manifest = "__VITE_MANIFEST_CONTENT__";
export default createApp({ manifest });
`

type site struct {
	root     string
	cfg      *config.Config
	resolved config.Resolved
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func newSite(t *testing.T) *site {
	t.Helper()
	root := t.TempDir()

	writeFiles(t, root, map[string]string{
		"src/client.js": `import "./style.css";` + "\n",
		"src/style.css": "body { margin: 0; }\n",
		"src/index.js":  serverEntry,
	})

	cfg := config.Default()
	cfg.Environments["client"].Build.Manifest = true
	cfg.Environments["client"].Build.Input = []string{"src/client.js", "src/style.css"}
	cfg.Environments["worker"] = &config.EnvironmentConfig{
		Consumer: core.ConsumerServer,
		Build:    config.BuildConfig{OutDir: "dist/worker", Input: []string{"src/index.js"}},
	}

	resolved, err := config.Resolve(cfg, root)
	require.NoError(t, err)

	return &site{root: root, cfg: cfg, resolved: resolved}
}

func (s *site) builder(plugins ...Plugin) *Builder {
	return NewBuilder(s.resolved, EnvironmentsFromConfig(s.cfg, s.resolved), fs.NewOSFileSystem(), nil, plugins...)
}

func (s *site) injector() (*reconcile.Reconciler, *reconcile.Plugin) {
	r := reconcile.New(s.resolved, fs.NewOSFileSystem(), nil)
	return r, reconcile.NewPlugin(r)
}

func (s *site) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestEnvironmentsFromConfig(t *testing.T) {
	s := newSite(t)
	envs := EnvironmentsFromConfig(s.cfg, s.resolved)

	require.Len(t, envs, 2)
	assert.Equal(t, "client", envs[0].Name)
	assert.Equal(t, core.ConsumerClient, envs[0].Consumer)
	assert.True(t, envs[0].Manifest)
	assert.Equal(t, filepath.Join(s.root, "dist", "client"), envs[0].OutDir)
	assert.Equal(t, filepath.Join(s.root, "src", "client.js"), envs[0].Inputs[0])

	assert.Equal(t, "worker", envs[1].Name)
	assert.True(t, envs[1].Target().SSR())
}

func TestBuildClientWritesHashedAssetsAndManifest(t *testing.T) {
	s := newSite(t)

	result, err := s.builder().Build(context.Background(), []string{"client"})
	require.NoError(t, err)
	require.Len(t, result.Environments, 1)
	assert.Len(t, result.Environments[0].Files, 3)

	content := s.read(t, "dist/client/.vite/manifest.json")
	entries, err := core.ManifestEntries(content)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "src/client.js", entries[0].Key)
	assert.Equal(t, "src/style.css", entries[1].Key)
	assert.True(t, entries[0].Chunk.IsEntry)
	assert.Equal(t, "client", entries[0].Chunk.Name)
	assert.True(t, strings.HasPrefix(entries[0].Chunk.File, "assets/client-"))
	assert.True(t, strings.HasSuffix(entries[1].Chunk.File, ".css"))

	for _, entry := range entries {
		_, err := os.Stat(filepath.Join(s.root, "dist", "client", filepath.FromSlash(entry.Chunk.File)))
		assert.NoError(t, err, entry.Chunk.File)
	}
}

func TestBuildServerFirstIsResolvedAfterClientWrite(t *testing.T) {
	s := newSite(t)
	r, plugin := s.injector()

	_, err := s.builder(plugin).Build(context.Background(), []string{"worker", "client"})
	require.NoError(t, err)

	assert.Equal(t, 0, plugin.InlinedModules())
	require.Len(t, plugin.PatchedFiles(), 1)

	residuals, err := r.Scan()
	require.NoError(t, err)
	assert.Empty(t, residuals)

	manifest := s.read(t, "dist/client/.vite/manifest.json")
	assert.Contains(t, s.read(t, "dist/worker/index.js"), core.BuildReplacement(manifest))
}

func TestBuildClientFirstIsResolvedAtTransform(t *testing.T) {
	s := newSite(t)
	r, plugin := s.injector()

	result, err := s.builder(plugin).Build(context.Background(), []string{"client", "worker"})
	require.NoError(t, err)

	assert.Equal(t, 1, plugin.InlinedModules())
	assert.Empty(t, plugin.PatchedFiles())
	assert.Equal(t, 1, result.Environments[1].Transformed)

	residuals, err := r.Scan()
	require.NoError(t, err)
	assert.Empty(t, residuals)

	manifest := s.read(t, "dist/client/.vite/manifest.json")
	assert.Contains(t, s.read(t, "dist/worker/index.js"), core.BuildReplacement(manifest))
}

func TestBuildServerFirstWithOutDirOverride(t *testing.T) {
	t.Setenv(config.EnvOutDir, "out")
	t.Setenv(config.EnvClientOutDir, "out/client")

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/client.js": "console.log(1);\n",
		"src/index.js":  serverEntry,
	})
	writeFiles(t, root, map[string]string{config.DefaultFile: `
environments:
  client:
    build:
      manifest: true
      input: [src/client.js]
  worker:
    build:
      input: [src/index.js]
`})

	cfg, err := config.Load(filepath.Join(root, config.DefaultFile))
	require.NoError(t, err)
	resolved, err := config.Resolve(cfg, root)
	require.NoError(t, err)
	s := &site{root: root, cfg: cfg, resolved: resolved}

	r, plugin := s.injector()
	_, err = s.builder(plugin).Build(context.Background(), []string{"worker", "client"})
	require.NoError(t, err)

	require.Len(t, plugin.PatchedFiles(), 1)
	residuals, err := r.Scan()
	require.NoError(t, err)
	assert.Empty(t, residuals)

	worker := s.read(t, "out/worker/index.js")
	assert.NotContains(t, worker, core.Placeholder)
	assert.Contains(t, worker, core.BuildReplacement(s.read(t, "out/client/.vite/manifest.json")))
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestBuildRejectsDuplicateServerOutputs(t *testing.T) {
	s := newSite(t)
	writeFiles(t, s.root, map[string]string{
		"src/a/index.js": "export const a = 1;\n",
		"src/b/index.js": "export const b = 2;\n",
	})
	s.cfg.Environments["worker"].Build.Input = []string{"src/a/index.js", "src/b/index.js"}

	_, err := s.builder().Build(context.Background(), []string{"worker"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateOutput)
	assert.Contains(t, err.Error(), "index.js")
	assert.NoDirExists(t, filepath.Join(s.root, "dist", "worker"))
}

func TestBuildWithoutClientKeepsPlaceholder(t *testing.T) {
	s := newSite(t)
	r, plugin := s.injector()

	_, err := s.builder(plugin).Build(context.Background(), []string{"worker"})
	require.NoError(t, err)

	assert.Equal(t, serverEntry, s.read(t, "dist/worker/index.js"))

	residuals, err := r.Scan()
	require.NoError(t, err)
	require.Len(t, residuals, 1)
	assert.Equal(t, []int{2}, residuals[0].Lines)
}

func TestRepeatedBuildsStayResolved(t *testing.T) {
	s := newSite(t)
	r, plugin := s.injector()
	b := s.builder(plugin)

	for range 3 {
		_, err := b.Build(context.Background(), []string{"worker", "client"})
		require.NoError(t, err)

		residuals, err := r.Scan()
		require.NoError(t, err)
		assert.Empty(t, residuals)
	}

	// The first build resolves through the sweep; later ones find the manifest
	// from the previous client build while transforming.
	assert.Equal(t, 2, plugin.InlinedModules())
	assert.Len(t, plugin.PatchedFiles(), 1)
}

func TestBuildUnknownEnvironment(t *testing.T) {
	s := newSite(t)

	_, err := s.builder().Build(context.Background(), []string{"worker", "edge"})
	assert.ErrorIs(t, err, ErrUnknownEnvironment)

	_, err = os.Stat(filepath.Join(s.root, "dist", "worker"))
	assert.True(t, os.IsNotExist(err), "nothing must be built when the order is invalid")
}

func TestBuildMissingInput(t *testing.T) {
	s := newSite(t)
	require.NoError(t, os.Remove(filepath.Join(s.root, "src", "index.js")))

	_, err := s.builder().Build(context.Background(), []string{"worker"})
	assert.Error(t, err)
}

func TestBuildRefusesToCleanProjectRoot(t *testing.T) {
	s := newSite(t)
	s.cfg.Environments["worker"].Build.OutDir = "."

	_, err := s.builder().Build(context.Background(), []string{"worker"})
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(s.root, "src", "index.js"))
}

type reloadAll struct{}

func (reloadAll) Name() string { return "reload-all" }

func (reloadAll) HotUpdate(environment string, modules []string) ([]string, bool) {
	return nil, true
}

type passThrough struct{}

func (passThrough) Name() string { return "pass-through" }

func (passThrough) HotUpdate(environment string, modules []string) ([]string, bool) {
	return modules, false
}

func TestHotUpdate(t *testing.T) {
	s := newSite(t)

	remaining, reload := s.builder(passThrough{}).HotUpdate("worker", []string{"src/index.js"})
	assert.Equal(t, []string{"src/index.js"}, remaining)
	assert.False(t, reload)

	remaining, reload = s.builder(passThrough{}, reloadAll{}).HotUpdate("worker", []string{"src/index.js"})
	assert.Empty(t, remaining)
	assert.True(t, reload)
}

func TestEscapePathKey(t *testing.T) {
	assert.Equal(t, `src/client\.ts`, escapePathKey("src/client.ts"))
	assert.Equal(t, `a\*b\?c`, escapePathKey("a*b?c"))
}
