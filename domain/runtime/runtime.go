// Package runtime implements the Runtime domain: console evaluation, and a
// handle-based view of non-primitive results that the console can expand
// with getProperties and release by object group.
package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/c360/ponybridge/domain"
	"github.com/c360/ponybridge/evaluator"
	"github.com/c360/ponybridge/remoteobject"
)

// Name is the wire name of the domain.
const Name = "Runtime"

// DefaultDescriptionLimit bounds RemoteObject descriptions.
const DefaultDescriptionLimit = 100

// Prompts logged while a console waits for more input.
const (
	FirstContinuationPrompt = "... (use . for blank line if necessary)"
	ContinuationPrompt      = "..."
)

// LogFunc writes a line to the debugging console.
type LogFunc func(text string)

type session struct {
	eval     *evaluator.Console
	partials int
}

// Domain is the Runtime domain.
type Domain struct {
	*domain.Base

	logger           *slog.Logger
	log              LogFunc
	objects          *remoteobject.Store
	descriptionLimit int

	bindings map[string]any

	mu       sync.Mutex
	sessions map[string]*session
}

// Option configures a Domain.
type Option func(*Domain)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Domain) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDescriptionLimit bounds the description of object handles.
func WithDescriptionLimit(limit int) Option {
	return func(d *Domain) {
		if limit > 0 {
			d.descriptionLimit = limit
		}
	}
}

// WithBindings makes values visible by name in every console.
func WithBindings(bindings map[string]any) Option {
	return func(d *Domain) {
		for name, value := range bindings {
			if d.bindings == nil {
				d.bindings = make(map[string]any, len(bindings))
			}
			d.bindings[name] = value
		}
	}
}

// WithStore replaces the object store.
func WithStore(store *remoteobject.Store) Option {
	return func(d *Domain) {
		if store != nil {
			d.objects = store
		}
	}
}

// New creates a disabled Runtime domain. log receives continuation prompts
// and print(...) output; it is usually the Console domain's Log.
func New(notifier domain.Notifier, log LogFunc, opts ...Option) *Domain {
	d := &Domain{
		Base:             domain.NewBase(Name, notifier),
		logger:           slog.Default(),
		log:              log,
		objects:          remoteobject.NewStore(),
		descriptionLimit: DefaultDescriptionLimit,
		sessions:         make(map[string]*session),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = func(string) {}
	}
	d.logger = d.logger.With("component", "runtime")
	return d
}

// Methods adds the Runtime operations to enable and disable. Disabling
// also drops every console and object handle.
func (d *Domain) Methods() map[string]domain.Handler {
	methods := d.Base.Methods()
	disable := methods["disable"]
	methods["disable"] = func(ctx context.Context, params json.RawMessage) (any, error) {
		result, err := disable(ctx, params)
		d.Clear()
		return result, err
	}
	methods["evaluate"] = d.evaluate
	methods["getProperties"] = d.getProperties
	methods["releaseObjectGroup"] = d.releaseObjectGroup
	methods["callFunctionOn"] = d.callFunctionOn
	return methods
}

// Objects returns the store holding exposed values.
func (d *Domain) Objects() *remoteobject.Store {
	return d.objects
}

// Clear drops every console and every object handle.
func (d *Domain) Clear() {
	d.mu.Lock()
	d.sessions = make(map[string]*session)
	d.mu.Unlock()
	d.objects.Clear()
}

func (d *Domain) session(group string) *session {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[group]
	if !ok {
		s = &session{eval: evaluator.New(evaluator.LogFunc(d.log))}
		for name, value := range d.bindings {
			s.eval.Set(name, value)
		}
		d.sessions[group] = s
	}
	return s
}

// EvaluateResult is the result of evaluate when the input produced a value
// or an error.
type EvaluateResult struct {
	Result    RemoteObject `json:"result"`
	WasThrown bool         `json:"wasThrown"`
}

type evaluateParams struct {
	Expression    string `json:"expression"`
	ObjectGroup   string `json:"objectGroup"`
	ReturnByValue bool   `json:"returnByValue"`
}

func (d *Domain) evaluate(_ context.Context, params json.RawMessage) (any, error) {
	var p evaluateParams
	if err := domain.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return d.Evaluate(p.Expression, p.ObjectGroup, p.ReturnByValue)
}

// Evaluate runs one line of console input in the console of group. A lone
// "." stands for a blank line, which ends multi-line input.
func (d *Domain) Evaluate(expression, group string, returnByValue bool) (any, error) {
	if expression == "." {
		expression = ""
	}

	s := d.session(group)
	out := s.eval.Push(expression)

	d.mu.Lock()
	if out.Partial {
		s.partials++
	} else {
		s.partials = 0
	}
	partials := s.partials
	d.mu.Unlock()

	switch {
	case out.Err != nil:
		return EvaluateResult{Result: d.exposeString(out.Err.Error()), WasThrown: true}, nil
	case out.Partial:
		if partials == 1 {
			d.log(FirstContinuationPrompt)
		} else {
			d.log(ContinuationPrompt)
		}
		return struct{}{}, nil
	case !out.HasValue:
		return struct{}{}, nil
	}

	result, err := d.Expose(out.Value, returnByValue, group)
	if err != nil {
		return nil, err
	}
	return EvaluateResult{Result: result}, nil
}

func (d *Domain) releaseObjectGroup(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ObjectGroup string `json:"objectGroup"`
	}
	if err := domain.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	released := d.objects.ReleaseGroup(p.ObjectGroup)
	d.resetInput(p.ObjectGroup)
	d.logger.Debug("Released object group", "group", p.ObjectGroup, "count", released)
	return nil, nil
}

// resetInput drops the unfinished multi-line input of group's console.
// Bindings survive.
func (d *Domain) resetInput(group string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[group]; ok {
		s.eval.Reset()
		s.partials = 0
	}
}

// bindingNames lists the names bound in group's console, or the shared
// bindings when the group has no console yet.
func (d *Domain) bindingNames(group string) []string {
	d.mu.Lock()
	s, ok := d.sessions[group]
	d.mu.Unlock()
	if ok {
		return s.eval.Names()
	}
	names := make([]string, 0, len(d.bindings))
	for name := range d.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
