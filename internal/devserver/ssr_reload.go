package devserver

import "github.com/jant/site/internal/core"

// SSRReload turns changes in server environments into full page reloads.
// Server code only runs while rendering HTML, so swapping the module alone
// would leave the page in the browser stale.
type SSRReload struct{}

func (SSRReload) Name() string {
	return "ssr-reload"
}

func (SSRReload) HotUpdate(environment string, modules []string) ([]string, bool) {
	if environment != core.ClientEnvironment && len(modules) > 0 {
		return nil, true
	}
	return modules, false
}
