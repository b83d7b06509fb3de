package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/pkg/cache"
)

// Default values applied before a config file is read.
const (
	DefaultGatewayURL        = "ws://127.0.0.1:9000/device"
	DefaultReconnectInterval = 20 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultAppName           = "Go server"
	DefaultDeviceID          = "N/A"
	DefaultDescriptionLimit  = 100
	DefaultAppAddr           = "127.0.0.1:8080"
	DefaultMetricsPath       = "/metrics"
)

// Config is the complete bridge configuration.
type Config struct {
	Gateway GatewayConfig `json:"gateway" yaml:"gateway"`
	Device  DeviceConfig  `json:"device" yaml:"device"`
	Network NetworkConfig `json:"network" yaml:"network"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	App     AppConfig     `json:"app" yaml:"app"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// GatewayConfig controls the websocket link to the debugging gateway.
type GatewayConfig struct {
	URL               string   `json:"url" yaml:"url"`
	ReconnectInterval Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
	HandshakeTimeout  Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
	// OfflineBuffer is the number of outgoing frames held while disconnected.
	// Zero drops them.
	OfflineBuffer int `json:"offline_buffer" yaml:"offline_buffer"`
}

// WithDefaults returns g with unset fields filled from the package defaults.
// Clients built from a hand-made GatewayConfig rely on it so that a zero
// timeout never turns into an already expired write deadline.
func (g GatewayConfig) WithDefaults() GatewayConfig {
	if g.URL == "" {
		g.URL = DefaultGatewayURL
	}
	if g.ReconnectInterval <= 0 {
		g.ReconnectInterval = Duration(DefaultReconnectInterval)
	}
	if g.HandshakeTimeout <= 0 {
		g.HandshakeTimeout = Duration(DefaultHandshakeTimeout)
	}
	return g
}

// DeviceConfig is the identity announced in Gateway.registerDevice.
type DeviceConfig struct {
	AppName  string `json:"app_name" yaml:"app_name"`
	DeviceID string `json:"device_id" yaml:"device_id"`
	Name     string `json:"name" yaml:"name"`
	Model    string `json:"model" yaml:"model"`
}

// NetworkConfig configures the Network domain.
type NetworkConfig struct {
	BodyCache cache.Config `json:"body_cache" yaml:"body_cache"`
}

// RuntimeConfig configures the Runtime domain.
type RuntimeConfig struct {
	DescriptionLimit int `json:"description_limit" yaml:"description_limit"`
}

// AppConfig configures the demo HTTP application run by the CLI.
type AppConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// MetricsConfig configures the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int    `json:"port" yaml:"port"`
	Path string `json:"path" yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			URL:               DefaultGatewayURL,
			ReconnectInterval: Duration(DefaultReconnectInterval),
			HandshakeTimeout:  Duration(DefaultHandshakeTimeout),
		},
		Device: DeviceConfig{
			AppName:  DefaultAppName,
			DeviceID: DefaultDeviceID,
			Name:     hostName(),
			Model:    userName(),
		},
		Network: NetworkConfig{BodyCache: cache.DefaultConfig()},
		Runtime: RuntimeConfig{DescriptionLimit: DefaultDescriptionLimit},
		App:     AppConfig{Addr: DefaultAppAddr},
		Metrics: MetricsConfig{Path: DefaultMetricsPath},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

func hostName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}

func userName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.Gateway.URL)
	if err != nil {
		return invalid("gateway.url: %v", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return invalid("gateway.url must use ws or wss, got %q", c.Gateway.URL)
	}
	if c.Gateway.ReconnectInterval <= 0 {
		return invalid("gateway.reconnect_interval must be positive")
	}
	if c.Gateway.HandshakeTimeout <= 0 {
		return invalid("gateway.handshake_timeout must be positive")
	}
	if c.Gateway.OfflineBuffer < 0 {
		return invalid("gateway.offline_buffer cannot be negative")
	}

	if c.Device.AppName == "" {
		return invalid("device.app_name is required")
	}

	if err := c.Network.BodyCache.Validate(); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "network.body_cache")
	}

	if c.Runtime.DescriptionLimit <= 0 {
		return invalid("runtime.description_limit must be positive")
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return invalid("metrics.port out of range: %d", c.Metrics.Port)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format must be json or text; got %q", c.Log.Format)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf(format, args...), "Config", "Validate", "invalid configuration")
}

// Duration is a time.Duration that reads "20s"-style strings from JSON and
// YAML. Bare JSON numbers are taken as nanoseconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats the duration like time.Duration.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}
