package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/c360/ponybridge/domain"
)

// Handler is a slog.Handler that passes every record to next and, while the
// Console domain is enabled, also sends records at or above level to the
// debugging console.
type Handler struct {
	next    slog.Handler
	console *Domain
	level   slog.Leveler
	prefix  string
	attrs   string
	busy    *atomic.Bool
}

// NewHandler wraps next. A nil level mirrors Info and above.
func (d *Domain) NewHandler(next slog.Handler, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{next: next, console: d, level: level, busy: new(atomic.Bool)}
}

// Enabled reports whether either destination wants the record.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.next.Enabled(ctx, level) {
		return true
	}
	return h.console.Enabled() && level >= h.level.Level()
}

// mirroringKey marks the context of a send made on behalf of a mirrored record.
type mirroringKey struct{}

// Handle forwards the record and mirrors it to the console. Records logged
// from inside a mirror send are not mirrored again. With a ContextNotifier
// that is detected through ctx, so concurrent loggers are unaffected. Any
// other notifier falls back to a per-handler flag, and records from other
// goroutines logged during a send are then not mirrored.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	if h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}

	if !h.console.Enabled() || r.Level < h.level.Level() {
		return err
	}
	if ctx.Value(mirroringKey{}) != nil {
		return err
	}
	if _, ok := h.console.Notifier().(domain.ContextNotifier); !ok {
		if !h.busy.CompareAndSwap(false, true) {
			return err
		}
		defer h.busy.Store(false)
	}

	h.console.LogLevelContext(context.WithValue(ctx, mirroringKey{}, true), consoleLevel(r.Level), h.format(r))
	return err
}

// WithAttrs returns a handler whose mirrored text includes attrs.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		writeAttr(&b, h.prefix, a)
	}
	clone.attrs = b.String()
	return &clone
}

// WithGroup returns a handler that qualifies later attribute keys.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *Handler) format(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	return b.String()
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, group, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s%s=%v", prefix, a.Key, a.Value.Any())
}

func consoleLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarning
	case level >= slog.LevelInfo:
		return LevelLog
	default:
		return LevelDebug
	}
}
