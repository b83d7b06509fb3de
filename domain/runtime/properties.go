package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/c360/ponybridge/domain"
	"github.com/c360/ponybridge/errors"
)

// Property is one entry of getProperties.
type Property struct {
	Name         string       `json:"name"`
	Value        RemoteObject `json:"value"`
	Configurable bool         `json:"configurable"`
	Enumerable   bool         `json:"enumerable"`
	WasThrown    bool         `json:"wasThrown"`
}

// PropertiesResult is the result of getProperties.
type PropertiesResult struct {
	Result []Property `json:"result"`
}

type member struct {
	name   string
	value  any
	thrown bool
}

func (d *Domain) getProperties(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ObjectID string `json:"objectId"`
	}
	if err := domain.DecodeParams(params, &p); err != nil {
		return nil, err
	}
	return d.Properties(p.ObjectID)
}

// Properties lists the members of a registered object. Each member value is
// exposed in the object's own group. An unknown id is an error the console
// should never cause, so it is not reportable.
func (d *Domain) Properties(objectID string) (PropertiesResult, error) {
	value, group, err := d.objects.Get(objectID)
	if err != nil {
		return PropertiesResult{}, errors.Wrap(err, "Runtime", "getProperties", "object lookup")
	}

	members := listMembers(value)
	props := make([]Property, 0, len(members))
	for _, m := range members {
		var exposed RemoteObject
		if m.thrown {
			exposed = d.exposeString(fmt.Sprint(m.value))
		} else {
			exposed, err = d.Expose(m.value, false, group)
			if err != nil {
				return PropertiesResult{}, err
			}
		}
		props = append(props, Property{
			Name:         m.name,
			Value:        exposed,
			Configurable: true,
			Enumerable:   true,
			WasThrown:    m.thrown,
		})
	}
	return PropertiesResult{Result: props}, nil
}

func listMembers(value any) []member {
	v := reflect.ValueOf(value)
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		members := make([]member, v.Len())
		for i := range members {
			members[i] = member{name: fmt.Sprint(i), value: v.Index(i).Interface()}
		}
		return members

	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		members := make([]member, len(keys))
		if isSet(v.Type()) {
			for i, k := range keys {
				members[i] = member{name: fmt.Sprint(i), value: k.Interface()}
			}
			return members
		}
		for i, k := range keys {
			members[i] = member{name: fmt.Sprint(k.Interface()), value: v.MapIndex(k).Interface()}
		}
		return members
	}

	return attributes(reflect.ValueOf(value))
}

// isSet reports whether a map type is used as a set.
func isSet(t reflect.Type) bool {
	elem := t.Elem()
	return elem.Kind() == reflect.Struct && elem.NumField() == 0
}

// attributes lists exported fields and methods of v sorted by name. A field
// that cannot be read, such as one promoted through a nil embedded pointer,
// is reported as thrown.
func attributes(v reflect.Value) []member {
	seen := make(map[string]bool)
	var members []member

	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		seen[m.Name] = true
		members = append(members, member{name: m.Name, value: v.Method(i).Interface()})
	}

	s := v
	for s.Kind() == reflect.Pointer {
		s = s.Elem()
	}
	if s.Kind() == reflect.Struct {
		st := s.Type()
		for _, f := range reflect.VisibleFields(st) {
			if !f.IsExported() || f.Anonymous || seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			members = append(members, readField(s, f))
		}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })
	return members
}

func readField(s reflect.Value, f reflect.StructField) (m member) {
	m.name = f.Name
	defer func() {
		if r := recover(); r != nil {
			m.value = fmt.Sprintf("cannot read %s: %v", f.Name, r)
			m.thrown = true
		}
	}()
	m.value = s.FieldByIndex(f.Index).Interface()
	return m
}
