package devserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/jant/site/internal/logging"
	"github.com/jant/site/internal/pipeline"
)

// Rebuilder rebuilds changed environments and tells the hub when browsers
// need to reload.
type Rebuilder struct {
	builder *pipeline.Builder
	order   []string
	hub     *Hub
	logger  *zap.Logger
}

func NewRebuilder(builder *pipeline.Builder, order []string, hub *Hub, logger *zap.Logger) *Rebuilder {
	return &Rebuilder{
		builder: builder,
		order:   order,
		hub:     hub,
		logger:  logging.OrNop(logger).Named("rebuild"),
	}
}

// Handle rebuilds the changed environments in build order. There is no
// module-level update transport, so any update that is not swallowed by a
// hook also reloads the page.
func (r *Rebuilder) Handle(ctx context.Context, change Change) {
	reload := false

	for _, name := range r.order {
		modules, ok := change[name]
		if !ok {
			continue
		}

		if _, err := r.builder.BuildEnvironment(ctx, name); err != nil {
			r.logger.Error("rebuild failed", zap.String("environment", name), zap.Error(err))
			continue
		}

		remaining, fullReload := r.builder.HotUpdate(name, modules)
		if fullReload || len(remaining) > 0 {
			reload = true
		}
		r.logger.Info("rebuilt", zap.String("environment", name), zap.Strings("modules", modules))
	}

	if reload && r.hub != nil {
		r.hub.Notify()
	}
}
