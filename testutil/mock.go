package testutil

import (
	"encoding/json"
	"sync"
	"time"
)

// Notification is one recorded outbound notification, with params
// normalised through a JSON round trip so tests compare wire shapes.
type Notification struct {
	Method string
	Params map[string]any
}

// MockNotifier records notifications sent by domains. Safe for concurrent use.
type MockNotifier struct {
	mu     sync.Mutex
	sent   []Notification
	notify chan struct{}
}

// NewMockNotifier creates an empty recorder.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{notify: make(chan struct{}, 1)}
}

// SendNotification records the notification.
func (m *MockNotifier) SendNotification(method string, params any) {
	n := Notification{Method: method, Params: map[string]any{}}
	if params != nil {
		if data, err := json.Marshal(params); err == nil {
			_ = json.Unmarshal(data, &n.Params)
		}
	}

	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Notifications returns a copy of everything recorded so far.
func (m *MockNotifier) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.sent))
	copy(out, m.sent)
	return out
}

// Methods returns the recorded method names in order.
func (m *MockNotifier) Methods() []string {
	sent := m.Notifications()
	methods := make([]string, len(sent))
	for i, n := range sent {
		methods[i] = n.Method
	}
	return methods
}

// Reset forgets everything recorded.
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}

// WaitForCount blocks until at least n notifications were recorded or the
// timeout expires, and reports whether the count was reached.
func (m *MockNotifier) WaitForCount(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		m.mu.Lock()
		count := len(m.sent)
		m.mu.Unlock()
		if count >= n {
			return true
		}
		select {
		case <-m.notify:
		case <-deadline:
			return false
		}
	}
}
