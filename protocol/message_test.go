package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/testutil"
)

func TestDecode_Classification(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  *Message
	}{
		{
			name:  "notification",
			frame: `{"method": "Network.enable", "params": {"a": 1}}`,
			want: &Message{
				Kind:   KindNotification,
				Method: "Network.enable",
				Params: json.RawMessage(`{"a": 1}`),
			},
		},
		{
			name:  "notification without params",
			frame: `{"method": "Runtime.enable"}`,
			want:  &Message{Kind: KindNotification, Method: "Runtime.enable", Params: json.RawMessage(`{}`)},
		},
		{
			name:  "command",
			frame: `{"id": 7, "method": "Network.getResponseBody", "params": {"requestId": "3"}}`,
			want: &Message{
				Kind:   KindCommand,
				ID:     json.RawMessage(`7`),
				Method: "Network.getResponseBody",
				Params: json.RawMessage(`{"requestId": "3"}`),
			},
		},
		{
			name:  "command with string id and null params",
			frame: `{"id": "abc", "method": "Runtime.enable", "params": null}`,
			want: &Message{
				Kind:   KindCommand,
				ID:     json.RawMessage(`"abc"`),
				Method: "Runtime.enable",
				Params: json.RawMessage(`{}`),
			},
		},
		{
			name:  "response",
			frame: `{"id": 3, "result": {"ok": true}}`,
			want: &Message{
				Kind:   KindResponse,
				ID:     json.RawMessage(`3`),
				Params: json.RawMessage(`{}`),
				Result: json.RawMessage(`{"ok": true}`),
			},
		},
		{
			name:  "error response",
			frame: `{"id": 4, "error": "nope"}`,
			want: &Message{
				Kind:   KindResponse,
				ID:     json.RawMessage(`4`),
				Params: json.RawMessage(`{}`),
				Error:  json.RawMessage(`"nope"`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Violations(t *testing.T) {
	frames := []string{
		`[1, 2]`,
		`"text"`,
		`null`,
		`not json`,
		`{}`,
		`{"params": {}}`,
		`{"id": 1}`,
		`{"id": 1, "error": null}`,
		`{"method": 42}`,
	}

	for _, frame := range frames {
		t.Run(frame, func(t *testing.T) {
			_, err := Decode([]byte(frame))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrProtocolViolate)
		})
	}
}

func TestDecode_SharedFixtures(t *testing.T) {
	kinds := map[string]Kind{
		testutil.CommandFrame:      KindCommand,
		testutil.NotificationFrame: KindNotification,
		testutil.ResponseFrame:     KindResponse,
	}
	for frame, want := range kinds {
		msg, err := Decode([]byte(frame))
		require.NoError(t, err, frame)
		assert.Equal(t, want, msg.Kind, frame)
	}

	for _, frame := range testutil.MalformedFrames {
		_, err := Decode([]byte(frame))
		assert.ErrorIs(t, err, errors.ErrProtocolViolate, frame)
	}
}

func TestMessage_IntIDAndErrorText(t *testing.T) {
	msg, err := Decode([]byte(`{"id": 12, "error": {"message": "bad"}}`))
	require.NoError(t, err)
	id, ok := msg.IntID()
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, "bad", msg.ErrorText())

	msg, err = Decode([]byte(`{"id": "x", "result": null}`))
	require.NoError(t, err)
	_, ok = msg.IntID()
	assert.False(t, ok)
	assert.Empty(t, msg.ErrorText())
}

func TestSplitMethod(t *testing.T) {
	domain, op, ok := SplitMethod("Network.getResponseBody")
	assert.True(t, ok)
	assert.Equal(t, "Network", domain)
	assert.Equal(t, "getResponseBody", op)

	domain, op, ok = SplitMethod("Gateway.registerDevice.extra")
	assert.True(t, ok)
	assert.Equal(t, "Gateway", domain)
	assert.Equal(t, "registerDevice.extra", op)

	for _, bad := range []string{"Network", ".enable", "Network.", ""} {
		_, _, ok = SplitMethod(bad)
		assert.False(t, ok, bad)
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(NewResult(json.RawMessage(`7`), map[string]any{"body": "hi"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 7, "result": {"body": "hi"}, "error": null}`, string(data))

	data, err = Encode(NewError(json.RawMessage(`"k"`), "Unsupported method"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "k", "result": null, "error": "Unsupported method"}`, string(data))

	data, err = Encode(NewNotification("Network.loadingFinished", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"method": "Network.loadingFinished", "params": {}}`, string(data))

	data, err = Encode(NewCommand(1, "Page.reload", map[string]bool{"ignoreCache": true}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 1, "method": "Page.reload", "params": {"ignoreCache": true}}`, string(data))

	_, err = Encode(NewNotification("x", make(chan int)))
	assert.Error(t, err)
}
