package intercept

import (
	"context"
	"net/http"
	"sync"

	"github.com/c360/ponybridge/domain/network"
)

type userKey struct{}

type userHolder struct {
	mu   sync.Mutex
	user *network.User
}

func (h *userHolder) set(u network.User) {
	h.mu.Lock()
	h.user = &u
	h.mu.Unlock()
}

func (h *userHolder) get() *network.User {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.user
}

// WithUser returns a context recording the authenticated user of the
// request. Use it in authentication middleware placed before Middleware.
func WithUser(ctx context.Context, user network.User) context.Context {
	if h, ok := ctx.Value(userKey{}).(*userHolder); ok {
		h.set(user)
		return ctx
	}
	h := &userHolder{}
	h.set(user)
	return context.WithValue(ctx, userKey{}, h)
}

// SetUser records the authenticated user from inside a handler wrapped by
// Middleware. It reports whether the request is being intercepted.
func SetUser(r *http.Request, user network.User) bool {
	h, ok := r.Context().Value(userKey{}).(*userHolder)
	if ok {
		h.set(user)
	}
	return ok
}

// withHolder makes sure r carries a user holder the handler can fill in.
func withHolder(r *http.Request) (*http.Request, *userHolder) {
	if h, ok := r.Context().Value(userKey{}).(*userHolder); ok {
		return r, h
	}
	h := &userHolder{}
	return r.WithContext(context.WithValue(r.Context(), userKey{}, h)), h
}
