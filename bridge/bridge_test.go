package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ponybridge/config"
	"github.com/c360/ponybridge/domain/console"
	"github.com/c360/ponybridge/errors"
	"github.com/c360/ponybridge/metric"
)

const waitTimeout = 5 * time.Second

// fakeGateway accepts websocket connections and hands them to the test.
type fakeGateway struct {
	server *httptest.Server
	conns  chan *websocket.Conn
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		g.conns <- conn
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) url() string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http") + "/device"
}

func (g *fakeGateway) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-g.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(waitTimeout):
		t.Fatal("bridge did not connect")
		return nil
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitTimeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Gateway.URL = url
	cfg.Gateway.ReconnectInterval = config.Duration(50 * time.Millisecond)
	cfg.Gateway.HandshakeTimeout = config.Duration(2 * time.Second)
	cfg.Device.Name = "test-host"
	cfg.Device.Model = "tester"
	return cfg
}

func startBridge(t *testing.T, cfg *config.Config) (*Bridge, *metric.MetricsRegistry) {
	t.Helper()
	registry := metric.NewMetricsRegistry()
	b, err := NewBridge(cfg, Setup{Metrics: registry})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))
	t.Cleanup(func() {
		cancel()
		select {
		case <-b.Done():
		case <-time.After(waitTimeout):
			t.Error("connection loop did not stop")
		}
	})
	return b, registry
}

// connect starts a bridge and consumes its registration frame.
func connect(t *testing.T) (*Bridge, *websocket.Conn, *metric.MetricsRegistry) {
	t.Helper()
	g := newFakeGateway(t)
	b, registry := startBridge(t, testConfig(g.url()))
	conn := g.accept(t)
	frame := readFrame(t, conn)
	require.Equal(t, "Gateway.registerDevice", frame["method"])
	require.Eventually(t, b.Connected, waitTimeout, 10*time.Millisecond)
	return b, conn, registry
}

func TestRegisterDevice(t *testing.T) {
	g := newFakeGateway(t)
	b, _ := startBridge(t, testConfig(g.url()))

	conn := g.accept(t)
	frame := readFrame(t, conn)
	assert.Equal(t, "Gateway.registerDevice", frame["method"])

	params := frame["params"].(map[string]any)
	assert.Equal(t, config.DefaultAppName, params["app_name"])
	assert.Equal(t, config.DefaultDeviceID, params["device_id"])
	assert.Equal(t, "test-host", params["device_name"])
	assert.Equal(t, "tester", params["device_model"])

	iconData, err := base64.StdEncoding.DecodeString(params["app_icon_base64"].(string))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(iconData), "\x89PNG"))

	require.Eventually(t, b.Connected, waitTimeout, 10*time.Millisecond)
	assert.NotEmpty(t, b.SessionID())
	status, ok := b.Health().Get(HealthComponent)
	require.True(t, ok)
	assert.True(t, status.Healthy)
}

func TestCommandRoundTrip(t *testing.T) {
	_, conn, _ := connect(t)

	writeFrame(t, conn, `{"id": 1, "method": "Runtime.evaluate", "params": {"expression": "1 + 1"}}`)
	resp := readFrame(t, conn)
	assert.Equal(t, float64(1), resp["id"])
	assert.Nil(t, resp["error"])
	assert.Equal(t, map[string]any{
		"result":    map[string]any{"type": "number", "value": float64(2)},
		"wasThrown": false,
	}, resp["result"])

	writeFrame(t, conn, `{"id": "abc", "method": "Bogus.op"}`)
	resp = readFrame(t, conn)
	assert.Equal(t, "abc", resp["id"])
	assert.Nil(t, resp["result"])
	assert.Equal(t, "Unsupported method", resp["error"])

	writeFrame(t, conn, `{"id": 3, "method": "Network.getResponseBody", "params": {"requestId": "42"}}`)
	resp = readFrame(t, conn)
	assert.Equal(t, "Request not found", resp["error"])

	writeFrame(t, conn, `{"id": 4, "method": "Network.canClearBrowserCache"}`)
	resp = readFrame(t, conn)
	assert.Equal(t, false, resp["result"])
}

func TestNotificationsGetNoReply(t *testing.T) {
	b, conn, _ := connect(t)

	writeFrame(t, conn, `{"method": "Bogus.op"}`)
	writeFrame(t, conn, `{"method": "Network.enable"}`)
	writeFrame(t, conn, `{"id": 9, "method": "Network.canClearBrowserCookies"}`)

	resp := readFrame(t, conn)
	assert.Equal(t, float64(9), resp["id"], "the notifications produced no frames")
	assert.True(t, b.Network.Enabled())
}

func TestProtocolViolationKeepsPumping(t *testing.T) {
	_, conn, registry := connect(t)

	writeFrame(t, conn, `not json`)
	writeFrame(t, conn, `{"id": 5}`)
	writeFrame(t, conn, `{"id": 6, "method": "Console.enable"}`)

	resp := readFrame(t, conn)
	assert.Equal(t, float64(6), resp["id"])
	assert.Equal(t, float64(2), testutil.ToFloat64(
		registry.CoreMetrics().DispatchErrors.WithLabelValues(metric.KindProtocol)))
}

func TestConsoleLogReachesGateway(t *testing.T) {
	b, conn, _ := connect(t)

	b.Console.Log("hello from the host")
	frame := readFrame(t, conn)
	assert.Equal(t, "Console.messageAdded", frame["method"])
	msg := frame["params"].(map[string]any)["message"].(map[string]any)
	assert.Equal(t, "hello from the host", msg["text"])
}

func TestCall(t *testing.T) {
	b, conn, _ := connect(t)

	type result struct {
		raw json.RawMessage
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := b.Call(context.Background(), "Gateway.ping", map[string]any{"n": 1})
		done <- result{raw, err}
	}()

	cmd := readFrame(t, conn)
	assert.Equal(t, "Gateway.ping", cmd["method"])
	assert.Equal(t, map[string]any{"n": float64(1)}, cmd["params"])
	id := int(cmd["id"].(float64))

	writeFrame(t, conn, `{"id": 999, "result": {}}`)
	writeFrame(t, conn, `{"id": `+jsonInt(id)+`, "result": {"pong": true}, "error": null}`)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.JSONEq(t, `{"pong": true}`, string(r.raw))
	case <-time.After(waitTimeout):
		t.Fatal("Call did not return")
	}

	go func() {
		raw, err := b.Call(context.Background(), "Gateway.fail", nil)
		done <- result{raw, err}
	}()
	cmd = readFrame(t, conn)
	assert.Equal(t, map[string]any{}, cmd["params"])
	writeFrame(t, conn, `{"id": `+jsonInt(int(cmd["id"].(float64)))+`, "result": null, "error": "nope"}`)

	select {
	case r := <-done:
		msg, ok := errors.ReportableMessage(r.err)
		require.True(t, ok)
		assert.Equal(t, "nope", msg)
	case <-time.After(waitTimeout):
		t.Fatal("Call did not return")
	}
	assert.Zero(t, b.Pending())
}

func TestCallContextCancelled(t *testing.T) {
	b, conn, _ := connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := b.Call(ctx, "Gateway.slow", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, b.Pending())

	readFrame(t, conn)
}

func TestDisconnectedSendsAreDropped(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1/device")
	registry := metric.NewMetricsRegistry()
	b, err := NewBridge(cfg, Setup{Metrics: registry})
	require.NoError(t, err)

	b.SendNotification("Console.messageAdded", nil)
	_, err = b.SendCommand("Gateway.ping", nil, func(json.RawMessage, error) {
		t.Error("callback of an unsent command must not run")
	})
	assert.ErrorIs(t, err, errors.ErrNoConnection)
	assert.Zero(t, b.Pending())
	assert.Equal(t, float64(2), testutil.ToFloat64(
		registry.CoreMetrics().MessagesDropped.WithLabelValues(DropDisconnected)))
}

func TestOutboxFlushedAfterRegistration(t *testing.T) {
	g := newFakeGateway(t)
	cfg := testConfig(g.url())
	cfg.Gateway.OfflineBuffer = 2

	b, err := NewBridge(cfg, Setup{})
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		b.Console.Log(text)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Start(ctx))

	conn := g.accept(t)
	assert.Equal(t, "Gateway.registerDevice", readFrame(t, conn)["method"])
	for _, want := range []string{"two", "three"} {
		frame := readFrame(t, conn)
		msg := frame["params"].(map[string]any)["message"].(map[string]any)
		assert.Equal(t, want, msg["text"])
	}

	cancel()
	<-b.Done()
}

func TestReconnectAfterDrop(t *testing.T) {
	g := newFakeGateway(t)
	b, registry := startBridge(t, testConfig(g.url()))

	first := g.accept(t)
	readFrame(t, first)
	require.Eventually(t, b.Connected, waitTimeout, 10*time.Millisecond)

	failed := make(chan error, 1)
	_, err := b.SendCommand("Gateway.ping", nil, func(_ json.RawMessage, err error) { failed <- err })
	require.NoError(t, err)
	readFrame(t, first)

	require.NoError(t, first.Close())

	select {
	case err := <-failed:
		assert.ErrorIs(t, err, errors.ErrConnectionLost)
	case <-time.After(waitTimeout):
		t.Fatal("pending command was not failed")
	}

	second := g.accept(t)
	assert.Equal(t, "Gateway.registerDevice", readFrame(t, second)["method"])
	assert.GreaterOrEqual(t, testutil.ToFloat64(registry.CoreMetrics().ReconnectAttempts), float64(1))
}

func TestStartRequiresDomains(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1/device")
	c, err := New(cfg.Gateway, cfg.Device)
	require.NoError(t, err)
	assert.Error(t, c.Start(context.Background()))

	require.NoError(t, c.Register())
	assert.Error(t, c.Register(), "domains are registered once")
}

func TestZeroTimeoutsStillWrite(t *testing.T) {
	g := newFakeGateway(t)
	c, err := New(config.GatewayConfig{URL: g.url()}, config.DeviceConfig{AppName: "app"})
	require.NoError(t, err)
	con := console.New(c)
	require.NoError(t, c.Register(con))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})

	conn := g.accept(t)
	assert.Equal(t, "Gateway.registerDevice", readFrame(t, conn)["method"])
	require.Eventually(t, c.Connected, waitTimeout, 10*time.Millisecond)

	con.Log("after handshake")
	assert.Equal(t, "Console.messageAdded", readFrame(t, conn)["method"])
}

func TestDefaultIsSingleton(t *testing.T) {
	first, err := Default()
	require.NoError(t, err)
	second, err := Default()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.NotNil(t, first.Console)
	assert.NotNil(t, first.Network)
	assert.NotNil(t, first.Runtime)
}

func jsonInt(n int) string {
	data, _ := json.Marshal(n)
	return string(data)
}
