package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jant/site/internal/adapters/cli"
	"github.com/jant/site/internal/adapters/env"
	"github.com/jant/site/internal/adapters/fs"
	"github.com/jant/site/internal/config"
	"github.com/jant/site/internal/core"
	"github.com/jant/site/internal/logging"
	"github.com/jant/site/internal/pipeline"
	"github.com/jant/site/internal/reconcile"
)

type options struct {
	root       string
	configPath string
	verbose    bool
}

// app holds what every command needs once flags are parsed.
type app struct {
	out      *cli.Output
	logger   *zap.Logger
	mode     core.Mode
	cfg      *config.Config
	resolved config.Resolved
	fs       fs.FileSystem
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	a := &app{}

	root := &cobra.Command{
		Use:           "site",
		Short:         "Build the site's client and server bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.root, "root", ".", "project root")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultFile, "config file, relative to the project root")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newBuildCmd(a),
		newPatchCmd(a),
		newCheckCmd(a),
		newManifestCmd(a),
		newWatchCmd(a),
	)

	return root
}

func (a *app) init(cmd *cobra.Command, opts *options) error {
	a.out = cli.NewWriterOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	a.mode = env.DetectMode()
	a.fs = fs.NewOSFileSystem()

	configPath := opts.configPath
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(opts.root, configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	resolved, err := config.Resolve(cfg, opts.root)
	if err != nil {
		return err
	}
	a.resolved = resolved

	logger, err := logging.New(a.mode, cfg.Logging.Level, opts.verbose)
	if err != nil {
		return err
	}
	a.logger = logger

	a.logger.Debug("configuration resolved",
		zap.String("root", resolved.Root),
		zap.String("outDir", resolved.OutputRoot),
		zap.String("clientOutDir", resolved.ClientOutDir))
	return nil
}

func (a *app) reconciler() *reconcile.Reconciler {
	return reconcile.New(a.resolved, a.fs, a.logger)
}

func (a *app) builder(plugins ...pipeline.Plugin) *pipeline.Builder {
	envs := pipeline.EnvironmentsFromConfig(a.cfg, a.resolved)
	return pipeline.NewBuilder(a.resolved, envs, a.fs, a.logger, plugins...)
}

func (a *app) relative(path string) string {
	rel, err := filepath.Rel(a.resolved.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func splitOrder(cfg *config.Config, flag []string) ([]string, error) {
	if len(flag) == 0 {
		return cfg.BuildOrder(), nil
	}
	for _, name := range flag {
		if _, ok := cfg.Environments[name]; !ok {
			return nil, fmt.Errorf("%w: %s", pipeline.ErrUnknownEnvironment, name)
		}
	}
	return flag, nil
}
