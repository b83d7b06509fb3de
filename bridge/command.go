package bridge

import (
	"context"
	"encoding/json"

	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/metric"
	"github.com/c360/ponybridge/protocol"
)

// SendCommand sends a command to the gateway and registers cb for its
// response. The returned id is the command's id on the wire. Commands are
// never buffered: a closed link fails immediately and cb is not called.
func (c *Client) SendCommand(method string, params any, cb ResponseFunc) (int64, error) {
	c.pendingMu.Lock()
	id := c.nextID
	c.nextID++
	if cb != nil {
		c.pending[id] = cb
	}
	c.pendingMu.Unlock()

	frame, err := protocol.Encode(protocol.NewCommand(id, method, params))
	if err == nil {
		err = c.send(frame, metric.KindCommand, false)
	}
	if err != nil {
		c.forget(id)
		return id, err
	}
	return id, nil
}

// Call sends a command and waits for its response or for ctx to end.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	type outcome struct {
		result json.RawMessage
		err    error
	}
	ch := make(chan outcome, 1)

	id, err := c.SendCommand(method, params, func(result json.RawMessage, err error) {
		ch <- outcome{result, err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		c.forget(id)
		return nil, errors.WrapTransient(ctx.Err(), "Client", "Call", method)
	}
}

// Pending returns the number of commands awaiting a response.
func (c *Client) Pending() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

func (c *Client) forget(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// resolve hands a Response to its pending callback. Unknown ids are ignored
// since the caller may have stopped waiting.
func (c *Client) resolve(msg *protocol.Message) {
	id, ok := msg.IntID()
	if !ok {
		return
	}

	c.pendingMu.Lock()
	cb, ok := c.pending[id]
	delete(c.pending, id)
	c.pendingMu.Unlock()
	if !ok {
		return
	}

	if text := msg.ErrorText(); text != "" {
		cb(nil, errors.Reportable(text))
		return
	}
	cb(msg.Result, nil)
}

// failPending fails every outstanding command after the link dropped.
func (c *Client) failPending() {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[int64]ResponseFunc)
	c.pendingMu.Unlock()

	for _, cb := range pending {
		cb(nil, errors.WrapTransient(errors.ErrConnectionLost, "Client", "failPending", "await response"))
	}
}
