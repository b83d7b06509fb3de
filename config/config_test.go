package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/pkg/cache"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "ws://127.0.0.1:9000/device", cfg.Gateway.URL)
	assert.Equal(t, 20*time.Second, cfg.Gateway.ReconnectInterval.Std())
	assert.Equal(t, 10*time.Second, cfg.Gateway.HandshakeTimeout.Std())
	assert.Zero(t, cfg.Gateway.OfflineBuffer)
	assert.Equal(t, "Go server", cfg.Device.AppName)
	assert.Equal(t, "N/A", cfg.Device.DeviceID)
	assert.NotEmpty(t, cfg.Device.Name)
	assert.NotEmpty(t, cfg.Device.Model)
	assert.Equal(t, cache.StrategyFIFO, cfg.Network.BodyCache.Strategy)
	assert.Equal(t, 15, cfg.Network.BodyCache.MaxSize)
	assert.Equal(t, 100, cfg.Runtime.DescriptionLimit)
	assert.Zero(t, cfg.Metrics.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "bridge.json", `{
		"gateway": {"url": "wss://gateway.example:9443/device", "reconnect_interval": "5s"},
		"device": {"device_id": "abc"},
		"network": {"body_cache": {"strategy": "lru", "max_size": 30}},
		"log": {"level": "debug"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://gateway.example:9443/device", cfg.Gateway.URL)
	assert.Equal(t, 5*time.Second, cfg.Gateway.ReconnectInterval.Std())
	assert.Equal(t, 10*time.Second, cfg.Gateway.HandshakeTimeout.Std(), "unset fields keep defaults")
	assert.Equal(t, "abc", cfg.Device.DeviceID)
	assert.Equal(t, "Go server", cfg.Device.AppName)
	assert.Equal(t, cache.Config{Strategy: cache.StrategyLRU, MaxSize: 30}, cfg.Network.BodyCache)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "bridge.yaml", `
gateway:
  url: ws://10.1.2.3:9000/device
  handshake_timeout: 2s
  offline_buffer: 64
runtime:
  description_limit: 40
metrics:
  port: 9100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://10.1.2.3:9000/device", cfg.Gateway.URL)
	assert.Equal(t, 2*time.Second, cfg.Gateway.HandshakeTimeout.Std())
	assert.Equal(t, 64, cfg.Gateway.OfflineBuffer)
	assert.Equal(t, 40, cfg.Runtime.DescriptionLimit)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Equal(t, 20*time.Second, cfg.Gateway.ReconnectInterval.Std())
}

func TestLoad_EmptyYAMLUsesDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultGatewayURL, cfg.Gateway.URL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown field", "a.json", `{"gateway": {"uri": "ws://x"}}`},
		{"bad duration", "b.json", `{"gateway": {"reconnect_interval": "soon"}}`},
		{"bad yaml duration", "c.yaml", "gateway:\n  handshake_timeout: never\n"},
		{"bad scheme", "d.json", `{"gateway": {"url": "http://127.0.0.1:9000/device"}}`},
		{"bad cache", "e.json", `{"network": {"body_cache": {"strategy": "fifo", "max_size": 0}}}`},
		{"bad level", "f.yaml", "log:\n  level: verbose\n"},
		{"unsupported extension", "g.toml", `gateway = {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "expected invalid error, got %v", err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero reconnect", func(c *Config) { c.Gateway.ReconnectInterval = 0 }},
		{"zero handshake", func(c *Config) { c.Gateway.HandshakeTimeout = 0 }},
		{"negative buffer", func(c *Config) { c.Gateway.OfflineBuffer = -1 }},
		{"empty app name", func(c *Config) { c.Device.AppName = "" }},
		{"zero description", func(c *Config) { c.Runtime.DescriptionLimit = 0 }},
		{"port range", func(c *Config) { c.Metrics.Port = 70000 }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDuration_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Duration(1500 * time.Millisecond))
	require.NoError(t, err)
	assert.JSONEq(t, `"1.5s"`, string(data))

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`2000000000`), &d))
	assert.Equal(t, 2*time.Second, d.Std())
}

func TestGatewayConfig_WithDefaults(t *testing.T) {
	filled := GatewayConfig{}.WithDefaults()
	assert.Equal(t, DefaultGatewayURL, filled.URL)
	assert.Equal(t, DefaultReconnectInterval, filled.ReconnectInterval.Std())
	assert.Equal(t, DefaultHandshakeTimeout, filled.HandshakeTimeout.Std())

	custom := GatewayConfig{
		URL:              "ws://10.0.0.2:9000/device",
		HandshakeTimeout: Duration(time.Second),
		OfflineBuffer:    4,
	}.WithDefaults()
	assert.Equal(t, "ws://10.0.0.2:9000/device", custom.URL)
	assert.Equal(t, time.Second, custom.HandshakeTimeout.Std())
	assert.Equal(t, DefaultReconnectInterval, custom.ReconnectInterval.Std())
	assert.Equal(t, 4, custom.OfflineBuffer)
}
