// Package router arma el handler del API tier sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	chttp "github.com/kateeridumb/Library/internal/http"
	accountctrl "github.com/kateeridumb/Library/internal/http/controllers/account"
	healthctrl "github.com/kateeridumb/Library/internal/http/controllers/health"
	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	mw "github.com/kateeridumb/Library/internal/http/middlewares"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/rate"
)

// APIRouterDeps contiene todas las dependencias del router del API tier.
type APIRouterDeps struct {
	Account *accountctrl.Controllers
	Health  *healthctrl.Controllers
	Signer  *jwtx.Signer

	// Metrics es el handler de /metrics; nil lo desactiva.
	Metrics http.Handler

	// CORSOrigins: orígenes del web tier autorizados.
	CORSOrigins []string

	// Limiters por IP; nil = sin límite.
	LoginLimiter  rate.Limiter
	ForgotLimiter rate.Limiter

	// ClientIPs resuelve la IP del usuario detrás del web tier; nil = RemoteAddr.
	ClientIPs *mw.ClientIPResolver
}

// NewAPIRouter registra todas las rutas del API tier.
func NewAPIRouter(deps APIRouterDeps) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Health y métricas: sin logging (muy frecuentes).
	r.Group(func(r chi.Router) {
		r.Use(mw.WithRecover())
		r.Use(mw.WithRequestID())
		if deps.Health != nil {
			r.Get("/healthz", deps.Health.Health.Healthz)
		}
		if deps.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", deps.Metrics)
		}
	})

	if deps.Account != nil {
		RegisterAccountRoutes(r, AccountRouterDeps{
			Controllers:   deps.Account,
			Signer:        deps.Signer,
			LoginLimiter:  deps.LoginLimiter,
			ForgotLimiter: deps.ForgotLimiter,
			ClientIPs:     deps.ClientIPs,
		})
	}

	var h http.Handler = r
	if len(deps.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           600,
		}).Handler(h)
	}
	return chttp.WithMetrics(h)
}
