// Package pipeline is a small multi-environment build host. It compiles each
// environment's inputs through the registered plugins and writes them to the
// environment's output directory. Client environments get content-hashed
// asset names and an optional manifest; server environments get one script
// per input.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jant/site/internal/adapters/fs"
	"github.com/jant/site/internal/config"
	"github.com/jant/site/internal/core"
	"github.com/jant/site/internal/logging"
)

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrDuplicateOutput    = errors.New("duplicate output file")
)

// Builder builds the configured environments through its plugins.
type Builder struct {
	cfg     config.Resolved
	fs      fs.FileSystem
	logger  *zap.Logger
	envs    map[string]Environment
	plugins []Plugin
}

// EnvironmentResult lists the files written for one environment and how many
// modules a transform hook changed.
type EnvironmentResult struct {
	Name        string
	Files       []string
	Transformed int
}

type Result struct {
	Environments []EnvironmentResult
}

func NewBuilder(cfg config.Resolved, envs []Environment, fsys fs.FileSystem, logger *zap.Logger, plugins ...Plugin) *Builder {
	byName := make(map[string]Environment, len(envs))
	for _, env := range envs {
		byName[env.Name] = env
	}
	return &Builder{
		cfg:     cfg,
		fs:      fsys,
		logger:  logging.OrNop(logger).Named("pipeline"),
		envs:    byName,
		plugins: plugins,
	}
}

// Environment looks up a configured environment by name.
func (b *Builder) Environment(name string) (Environment, bool) {
	env, ok := b.envs[name]
	return env, ok
}

// Build builds the environments one after another in the given order.
func (b *Builder) Build(ctx context.Context, order []string) (Result, error) {
	for _, name := range order {
		if _, ok := b.envs[name]; !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownEnvironment, name)
		}
	}

	var result Result
	for _, name := range order {
		envResult, err := b.BuildEnvironment(ctx, name)
		if err != nil {
			return result, err
		}
		result.Environments = append(result.Environments, envResult)
	}
	return result, nil
}

type compiled struct {
	input   string
	outName string
	code    []byte
	changed bool
}

// BuildEnvironment compiles one environment, replaces its output directory and
// runs the write-bundle hooks once every file is on disk.
func (b *Builder) BuildEnvironment(ctx context.Context, name string) (EnvironmentResult, error) {
	env, ok := b.envs[name]
	if !ok {
		return EnvironmentResult{}, fmt.Errorf("%w: %s", ErrUnknownEnvironment, name)
	}

	log := b.logger.With(zap.String("environment", name))
	log.Debug("building environment", zap.Int("inputs", len(env.Inputs)))

	modules, err := b.compile(ctx, env)
	if err != nil {
		return EnvironmentResult{}, err
	}
	if err := checkOutputNames(modules); err != nil {
		return EnvironmentResult{}, fmt.Errorf("environment %s: %w", name, err)
	}

	if containsPath(env.OutDir, b.cfg.Root) {
		return EnvironmentResult{}, fmt.Errorf("refusing to clean %s: it contains the project root", env.OutDir)
	}
	if err := b.fs.RemoveAll(env.OutDir); err != nil {
		return EnvironmentResult{}, fmt.Errorf("failed to clean %s: %w", env.OutDir, err)
	}
	if err := b.fs.MkdirAll(env.OutDir, 0755); err != nil {
		return EnvironmentResult{}, fmt.Errorf("failed to create %s: %w", env.OutDir, err)
	}

	result := EnvironmentResult{Name: name}
	for _, m := range modules {
		path := filepath.Join(env.OutDir, filepath.FromSlash(m.outName))
		if err := b.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return result, fmt.Errorf("failed to create output dir for %s: %w", m.outName, err)
		}
		if err := b.fs.WriteFile(path, m.code, 0644); err != nil {
			return result, fmt.Errorf("failed to write %s: %w", path, err)
		}
		result.Files = append(result.Files, path)
		if m.changed {
			result.Transformed++
		}
	}

	if env.Consumer == core.ConsumerClient && env.Manifest {
		path, err := b.writeManifest(env, modules)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, path)
	}

	log.Debug("environment written", zap.Int("files", len(result.Files)), zap.Int("transformed", result.Transformed))

	for _, p := range b.plugins {
		if hook, ok := p.(WriteBundleHook); ok {
			hook.WriteBundle(ctx, name)
		}
	}

	return result, nil
}

func (b *Builder) compile(ctx context.Context, env Environment) ([]compiled, error) {
	modules := make([]compiled, len(env.Inputs))
	target := env.Target()

	g, gctx := errgroup.WithContext(ctx)
	for i, input := range env.Inputs {
		g.Go(func() error {
			data, err := b.fs.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read input %s: %w", input, err)
			}

			code := string(data)
			changed := false
			id := core.ManifestKey(b.cfg.Root, input)
			for _, p := range b.plugins {
				hook, ok := p.(TransformHook)
				if !ok {
					continue
				}
				res := hook.Transform(gctx, code, id, target)
				if res.Changed {
					code = res.Code
					changed = true
				}
			}

			outName := core.ServerOutputName(input, b.cfg.ScriptExt)
			if env.Consumer == core.ConsumerClient {
				outName = core.AssetName(input, []byte(code))
			}

			modules[i] = compiled{input: input, outName: outName, code: []byte(code), changed: changed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return modules, nil
}

// writeManifest writes .vite/manifest.json with one entry per input, in input
// order.
func (b *Builder) writeManifest(env Environment, modules []compiled) (string, error) {
	doc := []byte("{}")
	for _, m := range modules {
		key := core.ManifestKey(b.cfg.Root, m.input)
		chunk := core.ManifestChunk{
			File:    m.outName,
			Name:    strings.TrimSuffix(filepath.Base(m.input), filepath.Ext(m.input)),
			Src:     key,
			IsEntry: true,
		}
		raw, err := json.Marshal(chunk)
		if err != nil {
			return "", fmt.Errorf("failed to encode manifest entry %s: %w", key, err)
		}
		doc, err = sjson.SetRawBytes(doc, escapePathKey(key), raw)
		if err != nil {
			return "", fmt.Errorf("failed to add manifest entry %s: %w", key, err)
		}
	}

	path := filepath.Join(env.OutDir, filepath.FromSlash(core.ManifestRelPath))
	if err := b.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create manifest dir: %w", err)
	}
	if err := b.fs.WriteFile(path, pretty.Pretty(doc), 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// HotUpdate runs the hot update hooks for changed modules of an environment.
func (b *Builder) HotUpdate(environment string, modules []string) (remaining []string, fullReload bool) {
	remaining = modules
	for _, p := range b.plugins {
		hook, ok := p.(HotUpdateHook)
		if !ok {
			continue
		}
		var reload bool
		remaining, reload = hook.HotUpdate(environment, remaining)
		fullReload = fullReload || reload
	}
	return remaining, fullReload
}

// checkOutputNames rejects inputs that would be written to the same file.
func checkOutputNames(modules []compiled) error {
	seen := make(map[string]string, len(modules))
	for _, m := range modules {
		if prev, ok := seen[m.outName]; ok {
			return fmt.Errorf("%w: %s and %s both map to %s", ErrDuplicateOutput, prev, m.input, m.outName)
		}
		seen[m.outName] = m.input
	}
	return nil
}

func containsPath(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// escapePathKey makes key usable as a single sjson path component.
func escapePathKey(key string) string {
	var sb strings.Builder
	for _, c := range key {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
