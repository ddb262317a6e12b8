package config

import (
	"fmt"
	"path/filepath"

	"github.com/jant/site/internal/core"
)

// Resolved is the build configuration captured once at setup time. It is
// passed by value to everything that needs to agree on output locations.
type Resolved struct {
	Root          string
	OutputRoot    string
	ClientOutDir  string
	ClientDirName string
	ManifestPath  string
	ScriptExt     string
}

func Resolve(cfg *Config, root string) (Resolved, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Resolved{}, fmt.Errorf("failed to resolve project root: %w", err)
	}

	clientOutDir := cfg.OutDir + "/" + core.ClientEnvironment
	if client := cfg.Environments[core.ClientEnvironment]; client != nil && client.Build.OutDir != "" {
		clientOutDir = client.Build.OutDir
	}

	clientDirName := core.DirName(clientOutDir)
	if clientDirName == "" {
		return Resolved{}, fmt.Errorf("%w: client outDir %q has no directory name", ErrInvalidConfig, clientOutDir)
	}

	absClient := absPath(absRoot, clientOutDir)

	return Resolved{
		Root:          absRoot,
		OutputRoot:    absPath(absRoot, cfg.OutDir),
		ClientOutDir:  absClient,
		ClientDirName: clientDirName,
		ManifestPath:  filepath.Join(absClient, filepath.FromSlash(core.ManifestRelPath)),
		ScriptExt:     cfg.ScriptExt,
	}, nil
}

// EnvironmentOutDir returns the absolute output directory of an environment.
func (r Resolved) EnvironmentOutDir(env *EnvironmentConfig) string {
	return absPath(r.Root, env.Build.OutDir)
}

func absPath(root, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
