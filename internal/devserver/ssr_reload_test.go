package devserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSSRReload(t *testing.T) {
	tests := []struct {
		name          string
		environment   string
		modules       []string
		wantRemaining []string
		wantReload    bool
	}{
		{
			name:          "server change reloads and swallows modules",
			environment:   "worker",
			modules:       []string{"src/index.js"},
			wantRemaining: nil,
			wantReload:    true,
		},
		{
			name:          "server without modules does nothing",
			environment:   "worker",
			modules:       nil,
			wantRemaining: nil,
			wantReload:    false,
		},
		{
			name:          "client change is left to module updates",
			environment:   "client",
			modules:       []string{"src/client.js"},
			wantRemaining: []string{"src/client.js"},
			wantReload:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remaining, reload := SSRReload{}.HotUpdate(tt.environment, tt.modules)
			assert.Equal(t, tt.wantRemaining, remaining)
			assert.Equal(t, tt.wantReload, reload)
		})
	}
}
