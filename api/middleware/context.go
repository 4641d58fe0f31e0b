package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/auth"
)

type contextKey string

const (
	ctxPrincipal contextKey = "principal"
	ctxSessionID contextKey = "session_id"
)

// PrincipalFromContext returns the signed-in principal or nil.
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxPrincipal).(*auth.Principal); ok {
		return v
	}
	return nil
}

// SessionIDFromContext returns the browser session id, anonymous or bound.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// WithPrincipal injects the principal into the context.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

// WithSessionID injects the browser session id into the context.
func WithSessionID(ctx context.Context, sid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, sid)
}
