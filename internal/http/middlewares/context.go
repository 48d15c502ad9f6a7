package middlewares

import (
	"context"

	jwtx "github.com/kateeridumb/Library/internal/jwt"
)

type (
	claimsKey    struct{}
	requestIDKey struct{}
)

// WithClaims deja el bearer validado en el contexto.
func WithClaims(ctx context.Context, c *jwtx.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// GetClaims devuelve nil fuera de RequireAuth.
func GetClaims(ctx context.Context) *jwtx.Claims {
	c, _ := ctx.Value(claimsKey{}).(*jwtx.Claims)
	return c
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
