package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360/ponybridge/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	GatewayURL      string
	AppAddr         string
	MetricsPort     int
	ShutdownTimeout time.Duration
}

func (c *CLIConfig) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()

	f.StringVarP(&c.ConfigPath, "config", "c",
		getEnv("PONYBRIDGE_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: PONYBRIDGE_CONFIG)")

	f.StringVar(&c.LogLevel, "log-level",
		getEnv("PONYBRIDGE_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: PONYBRIDGE_LOG_LEVEL)")

	f.StringVar(&c.LogFormat, "log-format",
		getEnv("PONYBRIDGE_LOG_FORMAT", ""),
		"Log format: json, text (env: PONYBRIDGE_LOG_FORMAT)")

	f.BoolVar(&c.Debug, "debug",
		getEnvBool("PONYBRIDGE_DEBUG", false),
		"Enable debug logging (env: PONYBRIDGE_DEBUG)")

	f.StringVar(&c.GatewayURL, "gateway",
		getEnv("PONYBRIDGE_GATEWAY_URL", ""),
		"Gateway websocket URL (env: PONYBRIDGE_GATEWAY_URL)")

	f.StringVar(&c.AppAddr, "addr",
		getEnv("PONYBRIDGE_APP_ADDR", ""),
		"Listen address of the demo application (env: PONYBRIDGE_APP_ADDR)")

	f.IntVar(&c.MetricsPort, "metrics-port",
		getEnvInt("PONYBRIDGE_METRICS_PORT", -1),
		"Metrics and health port, 0 to disable (env: PONYBRIDGE_METRICS_PORT)")

	f.DurationVar(&c.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("PONYBRIDGE_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: PONYBRIDGE_SHUTDOWN_TIMEOUT)")
}

// loadConfig reads the config file, when one is given, and applies flag
// overrides on top of it.
func (c *CLIConfig) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if c.ConfigPath != "" {
		loaded, err := config.Load(c.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.Debug {
		cfg.Log.Level = "debug"
	}
	if c.LogFormat != "" {
		cfg.Log.Format = c.LogFormat
	}
	if c.GatewayURL != "" {
		cfg.Gateway.URL = c.GatewayURL
	}
	if c.AppAddr != "" {
		cfg.App.Addr = c.AppAddr
	}
	if c.MetricsPort >= 0 {
		cfg.Metrics.Port = c.MetricsPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
