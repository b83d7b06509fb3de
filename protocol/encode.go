package protocol

import (
	"encoding/json"

	"github.com/c360/ponybridge/errors"
)

// Response answers an inbound Command. Both result and error are always
// present on the wire; exactly one of them is non-null on failure.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result"`
	Error  *string         `json:"error"`
}

// NewResult builds a successful Response.
func NewResult(id json.RawMessage, result any) Response {
	return Response{ID: echoID(id), Result: result}
}

// NewError builds a failed Response carrying message verbatim.
func NewError(id json.RawMessage, message string) Response {
	return Response{ID: echoID(id), Error: &message}
}

func echoID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// Notification is a one-way outbound message.
type Notification struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// NewNotification builds a Notification; nil params are sent as {}.
func NewNotification(method string, params any) Notification {
	if params == nil {
		params = struct{}{}
	}
	return Notification{Method: method, Params: params}
}

// Command is a request issued by the bridge to the gateway.
type Command struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

// NewCommand builds a Command; nil params are sent as {}.
func NewCommand(id int64, method string, params any) Command {
	if params == nil {
		params = struct{}{}
	}
	return Command{ID: id, Method: method, Params: params}
}

// Encode marshals an outbound frame.
func Encode(frame any) ([]byte, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, errors.WrapInvalid(err, "protocol", "Encode", "marshal frame")
	}
	return data, nil
}
