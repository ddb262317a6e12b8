package pipeline

import (
	"path/filepath"
	"sort"

	"github.com/jant/site/internal/config"
	"github.com/jant/site/internal/core"
)

type Environment struct {
	Name     string
	Consumer core.Consumer
	OutDir   string
	Inputs   []string
	Manifest bool
}

func (e Environment) Target() core.Target {
	return core.Target{Environment: e.Name, Consumer: e.Consumer}
}

// EnvironmentsFromConfig resolves every configured environment to absolute
// paths, sorted by name.
func EnvironmentsFromConfig(cfg *config.Config, resolved config.Resolved) []Environment {
	names := make([]string, 0, len(cfg.Environments))
	for name := range cfg.Environments {
		names = append(names, name)
	}
	sort.Strings(names)

	envs := make([]Environment, 0, len(names))
	for _, name := range names {
		ec := cfg.Environments[name]
		inputs := make([]string, 0, len(ec.Build.Input))
		for _, input := range ec.Build.Input {
			p := filepath.FromSlash(input)
			if !filepath.IsAbs(p) {
				p = filepath.Join(resolved.Root, p)
			}
			inputs = append(inputs, p)
		}
		envs = append(envs, Environment{
			Name:     name,
			Consumer: ec.Consumer,
			OutDir:   resolved.EnvironmentOutDir(ec),
			Inputs:   inputs,
			Manifest: ec.Build.Manifest,
		})
	}
	return envs
}
