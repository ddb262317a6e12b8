package devserver

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubNotifyDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	hub.Notify()
	hub.Notify()

	select {
	case <-ch:
	default:
		t.Fatal("expected a pending notification")
	}

	select {
	case <-ch:
		t.Fatal("notifications must coalesce")
	default:
	}

	hub.Unsubscribe(ch)
	assert.Equal(t, 0, hub.Subscribers())
	hub.Notify()
}

func TestHubServesReloadEvents(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+ReloadPath, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		for {
			next, err := reader.ReadString('\n')
			require.NoError(t, err)
			if next == "\n" {
				break
			}
		}
		return strings.TrimSpace(line)
	}

	assert.Equal(t, "event: ready", readEvent())
	require.Equal(t, 1, hub.Subscribers())

	hub.Notify()
	assert.Equal(t, "event: reload", readEvent())
}
