// Package domain implements the named capability groups exposed to the
// debugging gateway and the dispatcher that routes inbound commands and
// notifications to them.
//
// Operations are resolved from a static table built at registration time:
// each Domain declares its invokable handlers and its constant-valued
// operations explicitly, so nothing outside those tables can be reached
// from the wire.
package domain

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/c360/ponybridge/errors"
)

// Handler executes one domain operation. params is the raw "params" object
// of the frame ({} when absent). Returning an errors.Reportable error sends
// its message to the caller verbatim.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Notifier sends an outbound notification such as "Network.loadingFinished".
// Implementations drop the notification when the gateway is unreachable.
type Notifier interface {
	SendNotification(method string, params any)
}

// ContextNotifier is a Notifier that hands the caller's context to its own
// logging, so log handlers can recognise records emitted while sending.
type ContextNotifier interface {
	Notifier
	SendNotificationContext(ctx context.Context, method string, params any)
}

// Domain is a named capability group.
type Domain interface {
	// Name is the wire prefix, e.g. "Network".
	Name() string

	// Methods returns the invokable operations keyed by operation name.
	Methods() map[string]Handler

	// Statics returns constant-valued operations keyed by operation name.
	Statics() map[string]any
}

// Base carries the state every domain shares: its name, the enabled flag
// toggled by the universal enable/disable operations, and the notifier.
type Base struct {
	name     string
	enabled  atomic.Bool
	notifier Notifier
}

// NewBase creates a disabled Base.
func NewBase(name string, notifier Notifier) *Base {
	return &Base{name: name, notifier: notifier}
}

// Name returns the domain name.
func (b *Base) Name() string { return b.name }

// Enabled reports whether the gateway has enabled the domain.
func (b *Base) Enabled() bool { return b.enabled.Load() }

// SetEnabled toggles the domain.
func (b *Base) SetEnabled(enabled bool) { b.enabled.Store(enabled) }

// Notify sends "<Name>.<event>" through the notifier.
func (b *Base) Notify(event string, params any) {
	if b.notifier == nil {
		return
	}
	b.notifier.SendNotification(b.name+"."+event, params)
}

// NotifyContext is Notify with ctx passed through to a ContextNotifier.
func (b *Base) NotifyContext(ctx context.Context, event string, params any) {
	if b.notifier == nil {
		return
	}
	if cn, ok := b.notifier.(ContextNotifier); ok {
		cn.SendNotificationContext(ctx, b.name+"."+event, params)
		return
	}
	b.notifier.SendNotification(b.name+"."+event, params)
}

// Notifier returns the notifier the domain was created with.
func (b *Base) Notifier() Notifier { return b.notifier }

// Methods returns the universal enable and disable operations. Embedding
// domains extend this map with their own handlers.
func (b *Base) Methods() map[string]Handler {
	return map[string]Handler{
		"enable": func(context.Context, json.RawMessage) (any, error) {
			b.SetEnabled(true)
			return nil, nil
		},
		"disable": func(context.Context, json.RawMessage) (any, error) {
			b.SetEnabled(false)
			return nil, nil
		},
	}
}

// Statics returns no constants.
func (b *Base) Statics() map[string]any { return nil }

// DecodeParams unmarshals params into v, mapping failures to a reportable
// "Invalid params" error.
func DecodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return invalidParams(err)
	}
	return nil
}

func invalidParams(err error) error {
	return errors.WrapReportable(err, "Invalid params")
}
