package console

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ponybridge/domain"
	"github.com/c360/ponybridge/testutil"
)

func TestLog_SendsMessageAdded(t *testing.T) {
	notifier := testutil.NewMockNotifier()
	c := New(notifier)

	c.Log("hello")

	sent := notifier.Notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "Console.messageAdded", sent[0].Method)
	assert.Equal(t, map[string]any{
		"message": map[string]any{"level": "log", "source": "other", "text": "hello"},
	}, sent[0].Params)
}

func TestDomain_EnableDisableViaRegistry(t *testing.T) {
	c := New(testutil.NewMockNotifier())
	registry, err := domain.NewRegistry(c)
	require.NoError(t, err)

	enable, err := registry.Resolve("Console.enable")
	require.NoError(t, err)
	_, err = enable(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, c.Enabled())

	_, err = registry.Resolve("Console.messageAdded")
	assert.Error(t, err, "messageAdded is outbound only")
}

func TestHandler_MirrorsWhileEnabled(t *testing.T) {
	notifier := testutil.NewMockNotifier()
	c := New(notifier)
	var out bytes.Buffer
	logger := slog.New(c.NewHandler(slog.NewTextHandler(&out, nil), nil)).With("component", "app")

	logger.Info("before enable")
	assert.Empty(t, notifier.Notifications())
	assert.Contains(t, out.String(), "before enable")

	c.SetEnabled(true)
	logger.Debug("too quiet")
	logger.Warn("disk low", "free", 10)
	logger.WithGroup("req").Error("failed", "status", 500)

	sent := notifier.Notifications()
	require.Len(t, sent, 2)

	first := sent[0].Params["message"].(map[string]any)
	assert.Equal(t, "warning", first["level"])
	assert.Equal(t, "disk low component=app free=10", first["text"])

	second := sent[1].Params["message"].(map[string]any)
	assert.Equal(t, "error", second["level"])
	assert.Equal(t, "failed component=app req.status=500", second["text"])
}

// loopingNotifier logs through the mirrored logger while sending.
type loopingNotifier struct {
	logger *slog.Logger
	sent   int
}

func (l *loopingNotifier) SendNotification(string, any) {
	l.sent++
	l.logger.Info("sending frame")
}

func TestHandler_DoesNotRecurse(t *testing.T) {
	n := &loopingNotifier{}
	c := New(n)
	c.SetEnabled(true)
	n.logger = slog.New(c.NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelInfo))

	n.logger.Info("outer")
	assert.Equal(t, 1, n.sent)
}

// blockingNotifier holds the first send open until release is closed and
// logs through the mirrored logger with the context it was given.
type blockingNotifier struct {
	logger  *slog.Logger
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	texts   []string
}

func (b *blockingNotifier) SendNotification(method string, params any) {
	b.SendNotificationContext(context.Background(), method, params)
}

func (b *blockingNotifier) SendNotificationContext(ctx context.Context, _ string, params any) {
	msg := params.(map[string]Message)["message"]
	b.mu.Lock()
	b.texts = append(b.texts, msg.Text)
	first := len(b.texts) == 1
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "sending frame")
	if first {
		close(b.entered)
		<-b.release
	}
}

func (b *blockingNotifier) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts...)
}

func TestHandler_ConcurrentRecordsMirroredDuringSlowSend(t *testing.T) {
	n := &blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	c := New(n)
	c.SetEnabled(true)
	n.logger = slog.New(c.NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelInfo))

	done := make(chan struct{})
	go func() {
		defer close(done)
		n.logger.Info("slow request")
	}()
	<-n.entered

	n.logger.Info("other request")
	close(n.release)
	<-done

	assert.Equal(t, []string{"slow request", "other request"}, n.sent())
}
