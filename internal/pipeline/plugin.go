package pipeline

import (
	"context"

	"github.com/jant/site/internal/core"
)

// Plugin is anything registered with a Builder. It takes part in a build
// phase by also implementing one of the hook interfaces below.
type Plugin interface {
	Name() string
}

// TransformHook is called for every module of every environment. It must be
// safe for concurrent use.
type TransformHook interface {
	Transform(ctx context.Context, code, id string, target core.Target) core.TransformResult
}

// WriteBundleHook is called after all files of an environment are on disk.
type WriteBundleHook interface {
	WriteBundle(ctx context.Context, environment string)
}

// HotUpdateHook decides what happens when modules of an environment change
// during development. It returns the modules that still need a module-level
// update and whether the page must fully reload.
type HotUpdateHook interface {
	HotUpdate(environment string, modules []string) (remaining []string, fullReload bool)
}
