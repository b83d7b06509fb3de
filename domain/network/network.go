// Package network implements the Network domain: each intercepted HTTP
// exchange is mirrored to the gateway as a requestWillBeSent,
// responseReceived, dataReceived, loadingFinished sequence, and recent
// textual response bodies are kept for Network.getResponseBody.
package network

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/c360/ponybridge/domain"
	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/metric"
	"github.com/c360/ponybridge/pkg/cache"
)

// Name is the wire name of the domain.
const Name = "Network"

// Domain is the Network domain. OnRequestStart and OnResponseComplete are
// called from the host's request goroutines and are safe for concurrent use.
type Domain struct {
	*domain.Base

	logger *slog.Logger
	now    func() time.Time
	nextID atomic.Uint64
	bodies cache.Cache[string]
}

// Option configures a Domain.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	now     func() time.Time
	metrics *metric.MetricsRegistry
}

// WithLogger sets the logger used for body decoding failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics exports body cache statistics under the "network_bodies" label.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) { o.metrics = registry }
}

// New creates a disabled Network domain whose body cache follows bodyCache.
func New(notifier domain.Notifier, bodyCache cache.Config, opts ...Option) (*Domain, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	bodies, err := cache.NewFromConfig[string](bodyCache,
		cache.WithMetrics[string](o.metrics, "network_bodies"))
	if err != nil {
		return nil, errors.Wrap(err, "Network", "New", "body cache creation")
	}

	return &Domain{
		Base:   domain.NewBase(Name, notifier),
		logger: o.logger.With("component", "network"),
		now:    o.now,
		bodies: bodies,
	}, nil
}

// Methods adds getResponseBody to enable and disable.
func (d *Domain) Methods() map[string]domain.Handler {
	methods := d.Base.Methods()
	methods["getResponseBody"] = d.getResponseBody
	return methods
}

// Statics reports that there is no browser cache or cookie jar to clear.
func (d *Domain) Statics() map[string]any {
	return map[string]any{
		"canClearBrowserCache":   false,
		"canClearBrowserCookies": false,
	}
}

// ResponseBody is the result of Network.getResponseBody.
type ResponseBody struct {
	Body          string `json:"body"`
	Base64Encoded bool   `json:"base64Encoded"`
}

func (d *Domain) getResponseBody(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		RequestID string `json:"requestId"`
	}
	if err := domain.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	body, ok := d.ResponseBody(p.RequestID)
	if !ok {
		return nil, errors.Reportable("Request not found")
	}
	return ResponseBody{Body: body}, nil
}

// ResponseBody returns the cached body of a completed request.
func (d *Domain) ResponseBody(requestID string) (string, bool) {
	return d.bodies.Get(requestID)
}

// CachedBodies returns the number of bodies currently held.
func (d *Domain) CachedBodies() int {
	return d.bodies.Size()
}

// Close releases the body cache.
func (d *Domain) Close() error {
	return d.bodies.Close()
}

func (d *Domain) allocateID() string {
	return strconv.FormatUint(d.nextID.Add(1)-1, 10)
}

func (d *Domain) timestamp() float64 {
	return float64(d.now().UnixNano()) / float64(time.Second)
}
