package auth

import (
	"context"
	"time"
)

// Session is an authenticated admin session.
type Session struct {
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// contextKey is unexported so only this package can read or write the
// session stored in a context.
type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SessionFromContext returns the session stored in ctx, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok && s.Subject != ""
}

// IsAdmin reports whether ctx carries the admin session.
func IsAdmin(ctx context.Context) bool {
	s, ok := SessionFromContext(ctx)
	return ok && s.Subject == AdminSubject
}
