package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/c360/ponybridge/errors"
)

// RemoteObject describes a value to the console. Primitives carry Value;
// other values carry an ObjectID unless they were requested by value.
type RemoteObject struct {
	Type        string          `json:"type"`
	Value       json.RawMessage `json:"value,omitempty"`
	ObjectID    string          `json:"objectId,omitempty"`
	Description string          `json:"description,omitempty"`
	ClassName   string          `json:"className,omitempty"`
}

var jsonNull = json.RawMessage("null")

// Expose describes value. Primitives are always inline. Other values are
// serialized when byValue is set, and otherwise registered in the object
// store under group.
func (d *Domain) Expose(value any, byValue bool, group string) (RemoteObject, error) {
	if obj, ok := primitive(value); ok {
		return obj, nil
	}

	if byValue {
		data, err := json.Marshal(value)
		if err != nil {
			return RemoteObject{}, errors.WrapReportable(err, "result was not serializable")
		}
		return RemoteObject{Type: "object", Value: data}, nil
	}

	return RemoteObject{
		Type:        "object",
		ObjectID:    d.objects.Register(value, group),
		Description: truncate(fmt.Sprintf("%+v", value), d.descriptionLimit),
		ClassName:   fmt.Sprintf("%T", value),
	}, nil
}

func (d *Domain) exposeString(s string) RemoteObject {
	obj, _ := primitive(s)
	return obj
}

// primitive describes nil, strings, numbers and booleans inline.
func primitive(value any) (RemoteObject, bool) {
	if value == nil {
		return RemoteObject{Type: "undefined", Value: jsonNull}, true
	}

	v := reflect.ValueOf(value)
	var typ string
	switch v.Kind() {
	case reflect.String:
		typ = "string"
		value = v.String()
	case reflect.Bool:
		typ = "boolean"
		value = v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		typ = "number"
		value = v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		typ = "number"
		value = v.Uint()
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return RemoteObject{Type: "number", Description: strconv.FormatFloat(f, 'g', -1, 64)}, true
		}
		typ = "number"
		value = f
	default:
		return RemoteObject{}, false
	}

	data, err := json.Marshal(value)
	if err != nil {
		return RemoteObject{}, false
	}
	return RemoteObject{Type: typ, Value: data}, true
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
