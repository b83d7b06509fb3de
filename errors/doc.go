// Package errors provides standardized error handling for the bridge.
//
// # Two families of errors
//
// Reportable errors are raised by domains when a request cannot be honoured for a
// reason the remote console should see ("Request not found", "Unsupported method").
// The dispatcher copies their message verbatim into the Response error field:
//
//	if !ok {
//	    return nil, errors.Reportable("Request not found")
//	}
//
// Classified errors are defects or infrastructure failures. They carry a class
// (transient, invalid, fatal) and follow the wrapping pattern
// "component.method: action failed: cause":
//
//	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
//	    return errors.WrapTransient(err, "bridge", "send", "write frame")
//	}
//
// Anything that is not reportable is logged with full context by the dispatcher and
// replaced on the wire by a generic "Internal error" so that every command still gets
// exactly one response.
//
// # Unknown methods
//
// ErrUnknownMethod marks names that resolve to no domain or operation. The dispatcher
// maps it to the reportable "Unsupported method" for commands and swallows it for
// notifications.
package errors
