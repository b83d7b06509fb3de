// Package protocol defines the JSON frames exchanged with the debugging
// gateway and the rules for classifying inbound frames.
//
// Every frame is a JSON object of one of three shapes:
//
//	Command:      {"id": 7, "method": "Network.getResponseBody", "params": {...}}
//	Notification: {"method": "Network.enable", "params": {...}}
//	Response:     {"id": 7, "result": {...}, "error": null}
//
// Decode classifies a frame by which fields are present, not by their values:
// an "id" that is JSON null still makes the frame a Command or Response.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/ponybridge/errors"
)

// Kind identifies the shape of a decoded frame.
type Kind int

const (
	// KindNotification is a one-way message with no id.
	KindNotification Kind = iota
	// KindCommand has an id and a method and expects exactly one Response.
	KindCommand
	// KindResponse answers a Command previously sent by the bridge.
	KindResponse
)

// String returns the metric label for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotification:
		return "notification"
	case KindCommand:
		return "command"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Message is a decoded inbound frame. ID, Params, Result and Error hold the
// raw JSON so the id can be echoed back byte for byte.
type Message struct {
	Kind   Kind
	ID     json.RawMessage
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  json.RawMessage
}

var emptyParams = json.RawMessage(`{}`)

// Decode parses a text frame and classifies it. Frames that are not JSON
// objects, or that match none of the three shapes, yield an error wrapping
// errors.ErrProtocolViolate.
func Decode(frame []byte) (*Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: frame is not a JSON object: %v", errors.ErrProtocolViolate, err),
			"protocol", "Decode", "decode frame")
	}
	if fields == nil {
		return nil, violation("frame is null")
	}

	msg := &Message{Params: emptyParams}

	id, hasID := fields["id"]
	rawMethod, hasMethod := fields["method"]
	result, hasResult := fields["result"]
	respErr, hasError := fields["error"]

	if hasMethod {
		if err := json.Unmarshal(rawMethod, &msg.Method); err != nil {
			return nil, violation("method is not a string")
		}
		if params, ok := fields["params"]; ok && !isNull(params) {
			msg.Params = params
		}
	}

	switch {
	case !hasID && hasMethod:
		msg.Kind = KindNotification
	case !hasID:
		return nil, violation("frame has neither id nor method")
	case hasMethod:
		msg.Kind = KindCommand
		msg.ID = id
	case hasResult || (hasError && !isNull(respErr)):
		msg.Kind = KindResponse
		msg.ID = id
		msg.Result = result
		if hasError && !isNull(respErr) {
			msg.Error = respErr
		}
	default:
		return nil, violation("frame has id but neither method nor result")
	}

	return msg, nil
}

func violation(detail string) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrProtocolViolate, detail),
		"protocol", "Decode", "classify frame")
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// IntID returns the message id as an integer, the form used for commands
// the bridge issues itself.
func (m *Message) IntID() (int64, bool) {
	if len(m.ID) == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(m.ID)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ErrorText extracts a human-readable message from a Response error field,
// which the gateway may send as a string or as {"message": "..."}.
func (m *Message) ErrorText() string {
	if isNull(m.Error) {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(m.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(m.Error)
}

// SplitMethod splits "Domain.operation" at the first dot.
func SplitMethod(fullName string) (domain, operation string, ok bool) {
	domain, operation, ok = strings.Cut(fullName, ".")
	if !ok || domain == "" || operation == "" {
		return "", "", false
	}
	return domain, operation, true
}
