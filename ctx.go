package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// DefaultContextKey is the router locals key holding the session
const DefaultContextKey = "session"

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSessionContext sets the session in the given context
func WithSessionContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext finds the session in the context, nil when anonymous
func SessionFromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionCtxKey).(*Session)
	return s
}

// SetLocalSession stores the session in the router locals and in the
// request context
func SetLocalSession(c router.Context, key string, session *Session) {
	if key == "" {
		key = DefaultContextKey
	}
	c.Locals(key, session)
	c.SetContext(WithSessionContext(c.Context(), session))
}

// LocalSession reads the session from the router locals, nil when anonymous
func LocalSession(c router.Context, key string) *Session {
	if key == "" {
		key = DefaultContextKey
	}
	s, _ := c.Locals(key).(*Session)
	return s
}
