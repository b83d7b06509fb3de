package evaluator

import (
	"reflect"
	"sort"
)

// Builtin function names offered as completions for primitive kinds.
var primitiveCompletions = map[string][]string{
	"string":  {"hasPrefix", "hasSuffix", "indexOf", "lastIndexOf", "len", "lower", "repeat", "replace", "split", "trim", "trimPrefix", "trimSuffix", "upper"},
	"number":  {"abs", "ceil", "float", "floor", "int", "max", "min", "round", "string"},
	"boolean": {"string"},
}

// PrimitiveCompletions returns the names offered for a primitive kind
// ("string", "number" or "boolean"). Unknown kinds have none.
func PrimitiveCompletions(kind string) []string {
	return append([]string(nil), primitiveCompletions[kind]...)
}

// Completions returns the member names reachable on value: map keys, exported
// struct fields (promoted ones included) and exported methods. Pointers are
// followed.
func Completions(value any) []string {
	seen := make(map[string]bool)
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return nil
	}

	addMethods(v.Type(), seen)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			break
		}
		v = v.Elem()
		addMethods(v.Type(), seen)
	}

	switch v.Kind() {
	case reflect.Map:
		for _, key := range v.MapKeys() {
			if key.Kind() == reflect.String {
				seen[key.String()] = true
			}
		}
	case reflect.Struct:
		for _, f := range reflect.VisibleFields(v.Type()) {
			if f.IsExported() && !f.Anonymous {
				seen[f.Name] = true
			}
		}
	case reflect.String:
		for _, name := range primitiveCompletions["string"] {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func addMethods(t reflect.Type, seen map[string]bool) {
	for i := 0; i < t.NumMethod(); i++ {
		if m := t.Method(i); m.IsExported() {
			seen[m.Name] = true
		}
	}
}
