package reconcile

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jant/site/internal/adapters/fs"
	"github.com/jant/site/internal/config"
	"github.com/jant/site/internal/core"
)

const testManifest = `{"src/client.ts":{"file":"assets/client-ab12.js","isEntry":true}}`

var (
	serverTarget = core.Target{Environment: "worker", Consumer: core.ConsumerServer}
	clientTarget = core.Target{Environment: core.ClientEnvironment, Consumer: core.ConsumerClient}
)

type fixture struct {
	root string
	cfg  config.Resolved
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg, err := config.Resolve(config.Default(), root)
	require.NoError(t, err)
	return &fixture{root: root, cfg: cfg}
}

func (f *fixture) reconciler() *Reconciler {
	return New(f.cfg, fs.NewOSFileSystem(), nil)
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) writeManifest(t *testing.T, content string) {
	t.Helper()
	f.write(t, "dist/client/.vite/manifest.json", content)
}

// tree returns every file under dir keyed by slash-separated relative path.
func (f *fixture) tree(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	base := filepath.Join(f.root, filepath.FromSlash(dir))
	err := filepath.WalkDir(base, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func serverModule(name string) string {
	return strings.Join([]string{
		"// " + name,
		`const manifest = "__VITE_MANIFEST_CONTENT__";`,
		`export function assets() { return manifest.__manifest__.default; }`,
	}, "\n")
}

// failingWriteFS fails writes to paths with the given suffix.
type failingWriteFS struct {
	*fs.OSFileSystem
	suffix string
}

func (f failingWriteFS) WriteFile(path string, data []byte, perm iofs.FileMode) error {
	if strings.HasSuffix(filepath.ToSlash(path), f.suffix) {
		return errors.New("disk full")
	}
	return f.OSFileSystem.WriteFile(path, data, perm)
}
