// Package bridge maintains the link to the debugging gateway: it dials the
// gateway, announces the device, pumps inbound frames through the domain
// dispatcher, and serializes every outbound frame. A lost connection is
// rebuilt after a fixed interval for as long as the run context lives.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/c360/ponybridge/config"
	"github.com/c360/ponybridge/domain"
	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/health"
	"github.com/c360/ponybridge/metric"
	"github.com/c360/ponybridge/pkg/buffer"
	"github.com/c360/ponybridge/pkg/retry"
	"github.com/c360/ponybridge/protocol"
)

// HealthComponent is the health monitor entry describing the gateway link.
const HealthComponent = "gateway"

// Reasons used for the dropped frame counter.
const (
	DropDisconnected = "disconnected"
	DropWriteError   = "write_error"
	DropOverflow     = "outbox_overflow"
	DropEncodeError  = "encode_error"
)

// ResponseFunc receives the outcome of a bridge-initiated command. err is a
// reportable error when the gateway answered with an error, and wraps
// errors.ErrConnectionLost when the connection dropped first.
type ResponseFunc func(result json.RawMessage, err error)

// Client is the connection manager. It implements domain.ContextNotifier.
type Client struct {
	gateway  config.GatewayConfig
	device   config.DeviceConfig
	logger   *slog.Logger
	metrics  *metric.Metrics
	registry *metric.MetricsRegistry
	health   *health.Monitor
	dialer   *websocket.Dialer

	dispatcher *domain.Dispatcher
	domains    *domain.Registry

	// mu serializes writes and guards the connection state.
	mu        sync.Mutex
	conn      *websocket.Conn
	open      bool
	sessionID string
	outbox    buffer.Buffer[[]byte]

	pendingMu sync.Mutex
	nextID    int64
	pending   map[int64]ResponseFunc

	started atomic.Bool
	done    chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records bridge metrics in registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Client) {
		if registry != nil {
			c.registry = registry
			c.metrics = registry.CoreMetrics()
		}
	}
}

// WithHealth reports the link state to monitor.
func WithHealth(monitor *health.Monitor) Option {
	return func(c *Client) {
		if monitor != nil {
			c.health = monitor
		}
	}
}

// New creates a client for cfg. Domains are mounted with Register before
// the client is started.
func New(gateway config.GatewayConfig, device config.DeviceConfig, opts ...Option) (*Client, error) {
	gateway = gateway.WithDefaults()
	c := &Client{
		gateway: gateway,
		device:  device,
		logger:  slog.Default(),
		metrics: metric.NewMetrics(),
		health:  health.NewMonitor(),
		pending: make(map[int64]ResponseFunc),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "bridge")
	c.dialer = &websocket.Dialer{HandshakeTimeout: gateway.HandshakeTimeout.Std()}

	if gateway.OfflineBuffer > 0 {
		outbox, err := buffer.NewCircularBuffer[[]byte](gateway.OfflineBuffer,
			buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
			buffer.WithMetrics[[]byte](c.registry, "outbox"),
			buffer.WithDropCallback[[]byte](func([]byte) { c.metrics.RecordDropped(DropOverflow) }),
		)
		if err != nil {
			return nil, errors.Wrap(err, "Client", "New", "offline buffer creation")
		}
		c.outbox = outbox
	}

	c.health.UpdateUnhealthy(HealthComponent, "not connected")
	c.metrics.RecordConnectionStatus(false)
	return c, nil
}

// Register mounts the domains served over the connection. It must be called
// exactly once, before Start.
func (c *Client) Register(domains ...domain.Domain) error {
	if c.started.Load() {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "Register", "client already started")
	}
	if c.domains != nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "Register", "domains already registered")
	}
	registry, err := domain.NewRegistry(domains...)
	if err != nil {
		return err
	}
	c.domains = registry
	c.dispatcher = domain.NewDispatcher(registry, c.logger, c.metrics)
	return nil
}

// Domains returns the mounted registry, or nil before Register.
func (c *Client) Domains() *domain.Registry {
	return c.domains
}

// Health returns the monitor holding the link state.
func (c *Client) Health() *health.Monitor {
	return c.health
}

// Start runs the connection loop in the background until ctx is done.
func (c *Client) Start(ctx context.Context) error {
	if c.dispatcher == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Client", "Start", "no domains registered")
	}
	if !c.started.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "Start", "client already started")
	}
	go func() {
		defer close(c.done)
		if err := c.run(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("Connection loop stopped", "error", err)
		}
	}()
	return nil
}

// Done is closed when a started connection loop has returned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Connected reports whether the gateway link is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SessionID returns the id of the current connection, or "" when closed.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) run(ctx context.Context) error {
	interval := c.gateway.ReconnectInterval.Std()
	return retry.Forever(ctx, retry.Fixed(interval), c.session,
		func(attempt int, delay time.Duration, err error) {
			c.metrics.RecordReconnect()
			c.logger.Debug("Reconnecting to gateway", "attempt", attempt, "delay", delay, "error", err)
		})
}

// session dials the gateway and pumps frames until the connection drops.
func (c *Client) session(ctx context.Context) error {
	c.logger.Debug("Connecting to gateway", "url", c.gateway.URL)
	conn, _, err := c.dialer.DialContext(ctx, c.gateway.URL, nil)
	if err != nil {
		c.health.Update(HealthComponent, health.FromError(HealthComponent, err))
		return errors.WrapTransient(err, "Client", "session", "dial gateway")
	}

	sessionID := uuid.NewString()
	logger := c.logger.With("session", sessionID)

	if err := c.activate(conn, sessionID); err != nil {
		conn.Close()
		logger.Error("Failed to register device", "error", err)
		return err
	}
	logger.Info("Connected to gateway", "url", c.gateway.URL)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	err = c.pump(ctx, conn, logger)

	c.deactivate(conn)
	if ctx.Err() != nil {
		logger.Info("Gateway connection closed on shutdown")
		return ctx.Err()
	}
	logger.Error("Gateway connection closed", "error", err)
	return errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrConnectionLost, err),
		"Client", "session", "read frame")
}

// activate announces the device and flushes the outbox before any other
// frame can be written on conn.
func (c *Client) activate(conn *websocket.Conn, sessionID string) error {
	registration, err := protocol.Encode(protocol.NewNotification(
		"Gateway.registerDevice", c.registration()))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn = conn
	if err := c.writeLocked(registration); err != nil {
		c.conn = nil
		return errors.WrapTransient(err, "Client", "activate", "register device")
	}
	c.metrics.RecordSent(metric.KindNotification)

	if c.outbox != nil {
		for _, frame := range c.outbox.Drain() {
			if err := c.writeLocked(frame); err != nil {
				c.metrics.RecordDropped(DropWriteError)
				continue
			}
			c.metrics.RecordSent(metric.KindNotification)
		}
	}

	c.open = true
	c.sessionID = sessionID
	c.metrics.RecordConnectionStatus(true)
	c.health.UpdateHealthy(HealthComponent, "connected to "+c.gateway.URL)
	return nil
}

func (c *Client) deactivate(conn *websocket.Conn) {
	c.mu.Lock()
	c.open = false
	c.conn = nil
	c.sessionID = ""
	c.mu.Unlock()
	conn.Close()

	c.metrics.RecordConnectionStatus(false)
	c.health.UpdateUnhealthy(HealthComponent, "connection lost")
	c.failPending()
}

func (c *Client) pump(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleFrame(ctx, data, logger)
	}
}

// handleFrame processes one inbound frame. Nothing escaping it may end the
// pump without a log record.
func (c *Client) handleFrame(ctx context.Context, data []byte, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Failed to handle frame", "frame", string(data), "panic", r)
		}
	}()

	msg, err := protocol.Decode(data)
	if err != nil {
		c.metrics.RecordDispatchError(metric.KindProtocol)
		logger.Error("Protocol violation", "frame", string(data), "error", err)
		return
	}
	c.metrics.RecordReceived(msg.Kind.String())
	logger.Debug("Received frame", "kind", msg.Kind.String(), "method", msg.Method)

	switch msg.Kind {
	case protocol.KindNotification:
		c.dispatcher.HandleNotification(ctx, msg)
	case protocol.KindCommand:
		c.reply(c.dispatcher.HandleCommand(ctx, msg), logger)
	case protocol.KindResponse:
		c.resolve(msg)
	}
}

func (c *Client) reply(resp protocol.Response, logger *slog.Logger) {
	frame, err := protocol.Encode(resp)
	if err != nil {
		logger.Error("Failed to encode response", "id", string(resp.ID), "error", err)
		frame, err = protocol.Encode(protocol.NewError(resp.ID, domain.InternalErrorMessage))
		if err != nil {
			c.metrics.RecordDropped(DropEncodeError)
			return
		}
	}
	_ = c.send(frame, metric.KindResponse, false)
}

// SendNotification sends "Domain.event". While the link is down the frame
// goes to the outbox when one is configured, and is dropped otherwise.
func (c *Client) SendNotification(method string, params any) {
	c.SendNotificationContext(context.Background(), method, params)
}

// SendNotificationContext is SendNotification with ctx attached to the
// client's own log records.
func (c *Client) SendNotificationContext(ctx context.Context, method string, params any) {
	frame, err := protocol.Encode(protocol.NewNotification(method, params))
	if err != nil {
		c.metrics.RecordDropped(DropEncodeError)
		c.logger.DebugContext(ctx, "Dropped unencodable notification", "method", method, "error", err)
		return
	}
	_ = c.sendContext(ctx, frame, metric.KindNotification, true)
}

func (c *Client) send(frame []byte, kind string, bufferable bool) error {
	return c.sendContext(context.Background(), frame, kind, bufferable)
}

func (c *Client) sendContext(ctx context.Context, frame []byte, kind string, bufferable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		if bufferable && c.outbox != nil {
			return c.outbox.Write(frame)
		}
		c.metrics.RecordDropped(DropDisconnected)
		return errors.WrapTransient(errors.ErrNoConnection, "Client", "send", "gateway not connected")
	}

	if err := c.writeLocked(frame); err != nil {
		c.metrics.RecordDropped(DropWriteError)
		c.logger.DebugContext(ctx, "Failed to write frame", "kind", kind, "error", err)
		return errors.WrapTransient(err, "Client", "send", "write frame")
	}
	c.metrics.RecordSent(kind)
	return nil
}

func (c *Client) writeLocked(frame []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.gateway.HandshakeTimeout.Std())); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}
