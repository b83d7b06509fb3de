package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/metric"
	"github.com/c360/ponybridge/protocol"
)

// Messages sent in place of errors that must not leak to the caller.
const (
	UnsupportedMethodMessage = "Unsupported method"
	InternalErrorMessage     = "Internal error"
)

// Dispatcher routes decoded frames to the registry's handlers.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// NewDispatcher creates a dispatcher. logger and metrics may be nil.
func NewDispatcher(registry *Registry, logger *slog.Logger, metrics *metric.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger.With("component", "dispatcher"),
		metrics:  metrics,
	}
}

// HandleCommand runs a Command and always returns exactly one Response with
// the command's id. Unknown methods become "Unsupported method", reportable
// errors pass through verbatim, and every other failure (including panics)
// becomes "Internal error" after being logged.
func (d *Dispatcher) HandleCommand(ctx context.Context, msg *protocol.Message) protocol.Response {
	kind := metric.KindCommand

	handler, err := d.registry.Resolve(msg.Method)
	if err != nil {
		d.logger.Info("Received unknown command", "method", msg.Method, "params", string(msg.Params))
		d.recordError(kind)
		return protocol.NewError(msg.ID, UnsupportedMethodMessage)
	}

	result, err := d.invoke(ctx, kind, handler, msg)
	if err == nil {
		return protocol.NewResult(msg.ID, result)
	}

	d.recordError(kind)
	if text, ok := errors.ReportableMessage(err); ok {
		d.logger.Debug("Command failed", "method", msg.Method, "error", text)
		return protocol.NewError(msg.ID, text)
	}

	d.logger.Error("Command handler failed",
		"method", msg.Method, "params", string(msg.Params), "error", err)
	return protocol.NewError(msg.ID, InternalErrorMessage)
}

// HandleNotification runs a Notification and discards its result. Nothing
// is ever sent back: unknown methods are logged at Info, failures at Error.
func (d *Dispatcher) HandleNotification(ctx context.Context, msg *protocol.Message) {
	kind := metric.KindNotification

	handler, err := d.registry.Resolve(msg.Method)
	if err != nil {
		d.logger.Info("Received unknown notification", "method", msg.Method, "params", string(msg.Params))
		return
	}

	if _, err := d.invoke(ctx, kind, handler, msg); err != nil {
		d.recordError(kind)
		d.logger.Error("Notification handler failed",
			"method", msg.Method, "params", string(msg.Params), "error", err)
	}
}

func (d *Dispatcher) invoke(ctx context.Context, kind string, handler Handler, msg *protocol.Message) (result any, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapFatal(fmt.Errorf("panic: %v", r), "Dispatcher", msg.Method, "invoke handler")
			d.logger.Error("Handler panicked", "method", msg.Method, "panic", r, "stack", string(debug.Stack()))
		}
		if d.metrics != nil {
			d.metrics.RecordDispatchDuration(kind, time.Since(start))
		}
	}()

	params := msg.Params
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	return handler(ctx, params)
}

func (d *Dispatcher) recordError(kind string) {
	if d.metrics != nil {
		d.metrics.RecordDispatchError(kind)
	}
}
