package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360/ponybridge/config"
	"github.com/c360/ponybridge/domain/console"
	"github.com/c360/ponybridge/domain/network"
	rtdomain "github.com/c360/ponybridge/domain/runtime"
	"github.com/c360/ponybridge/health"
	"github.com/c360/ponybridge/metric"
)

// Bridge is a client with the Console, Network and Runtime domains mounted.
type Bridge struct {
	*Client
	Console *console.Domain
	Network *network.Domain
	Runtime *rtdomain.Domain
}

// Setup holds the optional collaborators of NewBridge.
type Setup struct {
	Logger   *slog.Logger
	Metrics  *metric.MetricsRegistry
	Health   *health.Monitor
	// Bindings are host values visible by name in every console.
	Bindings map[string]any
}

// NewBridge builds a client for cfg and mounts the standard domains. The
// bridge is not started.
func NewBridge(cfg *config.Config, setup Setup) (*Bridge, error) {
	logger := setup.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := New(cfg.Gateway, cfg.Device,
		WithLogger(logger), WithMetrics(setup.Metrics), WithHealth(setup.Health))
	if err != nil {
		return nil, err
	}

	con := console.New(client)
	nw, err := network.New(client, cfg.Network.BodyCache,
		network.WithLogger(logger), network.WithMetrics(setup.Metrics))
	if err != nil {
		return nil, err
	}
	rt := rtdomain.New(client, con.Log,
		rtdomain.WithLogger(logger),
		rtdomain.WithDescriptionLimit(cfg.Runtime.DescriptionLimit),
		rtdomain.WithBindings(setup.Bindings))

	if err := client.Register(con, nw, rt); err != nil {
		return nil, err
	}
	return &Bridge{Client: client, Console: con, Network: nw, Runtime: rt}, nil
}

var (
	defaultOnce   sync.Once
	defaultBridge *Bridge
	defaultErr    error
)

// Default returns the process-wide bridge, creating it from the default
// configuration and starting it on first use. It lives until the process
// exits. Later calls return the same bridge, or the same creation error.
func Default() (*Bridge, error) {
	defaultOnce.Do(func() {
		defaultBridge, defaultErr = NewBridge(config.Default(), Setup{})
		if defaultErr != nil {
			return
		}
		defaultErr = defaultBridge.Start(context.Background())
	})
	return defaultBridge, defaultErr
}
