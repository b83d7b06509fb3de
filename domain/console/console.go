// Package console implements the Console domain: log lines shown in the
// debugging console, either written explicitly with Log or mirrored from
// the host's slog records.
package console

import (
	"context"

	"github.com/c360/ponybridge/domain"
)

// Name is the wire name of the domain.
const Name = "Console"

// Console message levels understood by the gateway.
const (
	LevelLog     = "log"
	LevelDebug   = "debug"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Message is the payload of Console.messageAdded.
type Message struct {
	Level  string `json:"level"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Domain is the Console domain. It has no operations beyond enable/disable.
type Domain struct {
	*domain.Base
}

// New creates a disabled Console domain.
func New(notifier domain.Notifier) *Domain {
	return &Domain{Base: domain.NewBase(Name, notifier)}
}

// Log sends text to the console at "log" level. It is sent whether or not
// the domain is enabled, so evaluation prompts always reach the console.
func (d *Domain) Log(text string) {
	d.LogLevel(LevelLog, text)
}

// LogLevel sends text to the console at the given level.
func (d *Domain) LogLevel(level, text string) {
	d.LogLevelContext(context.Background(), level, text)
}

// LogLevelContext is LogLevel carrying ctx to the notifier.
func (d *Domain) LogLevelContext(ctx context.Context, level, text string) {
	d.NotifyContext(ctx, "messageAdded", map[string]Message{
		"message": {Level: level, Source: "other", Text: text},
	})
}
