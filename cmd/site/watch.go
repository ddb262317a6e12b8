package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jant/site/internal/devserver"
	"github.com/jant/site/internal/pipeline"
	"github.com/jant/site/internal/reconcile"
)

func newWatchCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, rebuild on change and serve reload events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = fmt.Sprintf(":%d", a.cfg.Server.Port)
			}

			order := a.cfg.BuildOrder()
			builder := a.builder(reconcile.NewPlugin(a.reconciler()), devserver.SSRReload{})
			if _, err := builder.Build(ctx, order); err != nil {
				return err
			}
			a.out.PrintSuccess("Initial build complete")

			hub := devserver.NewHub()
			rebuilder := devserver.NewRebuilder(builder, order, hub, a.logger)

			envs := make([]pipeline.Environment, 0, len(order))
			for _, name := range order {
				if env, ok := builder.Environment(name); ok {
					envs = append(envs, env)
				}
			}

			watcher, err := devserver.NewWatcher(envs, rebuilder.Handle, a.logger)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer watcher.Stop()

			mux := http.NewServeMux()
			mux.Handle(devserver.ReloadPath, hub)
			mux.Handle("/", http.FileServer(http.Dir(a.resolved.ClientOutDir)))

			server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()
			a.out.PrintStep("Serving %s on %s (reload events at %s)", a.relative(a.resolved.ClientOutDir), addr, devserver.ReloadPath)

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("dev server failed: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("dev server shutdown", zap.Error(err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config server.port)")
	return cmd
}
