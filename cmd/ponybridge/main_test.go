package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\napp:\n  addr: 127.0.0.1:9999\n"), 0o600))

	flags := &CLIConfig{ConfigPath: path, GatewayURL: "ws://gateway.test:9000/device", MetricsPort: -1}
	cfg, err := flags.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9999", cfg.App.Addr)
	assert.Equal(t, "ws://gateway.test:9000/device", cfg.Gateway.URL)
	assert.Equal(t, 0, cfg.Metrics.Port)

	flags.Debug = true
	flags.MetricsPort = 9100
	cfg, err = flags.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9100, cfg.Metrics.Port)

	flags.LogFormat = "xml"
	_, err = flags.loadConfig()
	assert.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("PONYBRIDGE_TEST_INT", "12")
	t.Setenv("PONYBRIDGE_TEST_BAD", "x")
	assert.Equal(t, 12, getEnvInt("PONYBRIDGE_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("PONYBRIDGE_TEST_BAD", 1))
	assert.True(t, getEnvBool("PONYBRIDGE_TEST_MISSING", true))
	assert.Equal(t, "d", getEnv("PONYBRIDGE_TEST_MISSING", "d"))
}

func TestCommands(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "ponybridge version "+Version)

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"validate", "--gateway", "ws://127.0.0.1:9000/device"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Configuration is valid")

	root = newRootCmd()
	root.SetArgs([]string{"validate", "--gateway", "http://not-a-websocket"})
	assert.Error(t, root.Execute())
}

func TestSetupHandler(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(setupHandler("warn", "json", &out))
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, out.String(), "hidden")
	assert.True(t, strings.HasPrefix(out.String(), "{"))
}

func TestDemoApp(t *testing.T) {
	app := newDemoApp(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("ping")))
	assert.Equal(t, "ping", rec.Body.String())

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/json?a=1", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"path":"/json"`)

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
