package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/protocol"
)

type registered struct {
	domain  Domain
	methods map[string]Handler
	statics map[string]any
}

// Registry maps domain names to their operation tables. It is built once and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	domains map[string]registered
}

// NewRegistry snapshots the operation tables of the given domains.
func NewRegistry(domains ...Domain) (*Registry, error) {
	r := &Registry{domains: make(map[string]registered, len(domains))}
	for _, d := range domains {
		name := d.Name()
		if name == "" {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "NewRegistry", "domain with empty name")
		}
		if _, exists := r.domains[name]; exists {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: domain %s registered twice", errors.ErrInvalidConfig, name),
				"Registry", "NewRegistry", "register domain")
		}
		r.domains[name] = registered{domain: d, methods: d.Methods(), statics: d.Statics()}
	}
	return r, nil
}

// Resolve finds the handler for "Domain.operation". Constant operations take
// precedence over invokable ones. Unknown domains and operations fail with
// errors.ErrUnknownMethod.
func (r *Registry) Resolve(fullName string) (Handler, error) {
	domainName, op, ok := protocol.SplitMethod(fullName)
	if !ok {
		return nil, unknown(fullName)
	}

	reg, ok := r.domains[domainName]
	if !ok {
		return nil, unknown(fullName)
	}

	if value, ok := reg.statics[op]; ok {
		return func(context.Context, json.RawMessage) (any, error) {
			return value, nil
		}, nil
	}

	if handler, ok := reg.methods[op]; ok && handler != nil {
		return handler, nil
	}
	return nil, unknown(fullName)
}

func unknown(fullName string) error {
	return fmt.Errorf("%w: %s", errors.ErrUnknownMethod, fullName)
}

// Domain returns the registered domain with the given name.
func (r *Registry) Domain(name string) (Domain, bool) {
	reg, ok := r.domains[name]
	return reg.domain, ok
}

// Names returns the registered domain names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.domains))
	for name := range r.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
