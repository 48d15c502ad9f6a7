package middlewares

import (
	"net/http"
	"strings"

	"github.com/kateeridumb/Library/internal/http/errors"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/observability/logger"
)

func bearer(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[7:])
}

// RequireAuth valida Authorization: Bearer <bridge token> y guarda las claims en el contexto.
// Si el token es inválido o no está presente, responde 401.
func RequireAuth(signer *jwtx.Signer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			claims, err := signer.Validate(raw, jwtx.PurposeBridge)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(claims.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole verifica que el usuario tenga al menos uno de los roles. Va después de RequireAuth.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cl := GetClaims(r.Context())
			if cl == nil {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			for _, have := range cl.Roles {
				for _, want := range roles {
					if have == want {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			errors.WriteError(w, errors.ErrForbidden.WithDetail("requires role: "+strings.Join(roles, ", ")))
		})
	}
}
