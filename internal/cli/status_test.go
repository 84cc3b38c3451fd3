package cli

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/config"
)

// statusConfig points storage at a temp dir and the daemon at a closed port.
func statusConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = t.TempDir()
	cfg.Daemon.Port = closedPort(t)
	return cfg
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestStatus_EmptyDB(t *testing.T) {
	store := setupStore(t)
	cmd := &StatusCommand{globals: testGlobals(false), version: "dev"}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, statusConfig(t)))
	})

	assert.Contains(t, output, "Dwell Status")
	assert.Contains(t, output, "Version:       dev")
	assert.Contains(t, output, "History:       0 rows")
	assert.Contains(t, output, "Retention:     7 days raw")
	assert.Contains(t, output, "not running")
	assert.NotContains(t, output, "Range:")
	assert.NotContains(t, output, "Top Sites:")
}

func TestStatus_WithData(t *testing.T) {
	store := setupStore(t)
	recordAt(t, store, "https://a.com/", "", time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local), 90*time.Minute)
	recordAt(t, store, "https://b.com/", "", time.Date(2025, 6, 14, 9, 0, 0, 0, time.Local), 3*time.Minute)

	cmd := &StatusCommand{globals: testGlobals(false), version: "dev"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, statusConfig(t)))
	})

	assert.Contains(t, output, "History:       2 rows")
	assert.Contains(t, output, "Range:         2025-06-10 .. 2025-06-14")
	assert.Contains(t, output, "Top Sites:")
	assert.Contains(t, output, "1h 30m")
}

func TestStatus_JSONDaemonRunning(t *testing.T) {
	daemon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthcheck" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer daemon.Close()

	host, portStr, err := net.SplitHostPort(daemon.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := statusConfig(t)
	cfg.Daemon.Host = host
	cfg.Daemon.Port = port

	store := setupStore(t)
	cmd := &StatusCommand{globals: testGlobals(true), version: "1.0.0"}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, cfg))
	})

	var out statusJSON
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.Equal(t, "1.0.0", out.Version)
	assert.True(t, out.DaemonRunning)
	assert.Equal(t, 7, out.RawRetentionDays)
	assert.NotNil(t, out.TopSites)
	assert.Contains(t, out.DatabasePath, "dwell.db")
}
