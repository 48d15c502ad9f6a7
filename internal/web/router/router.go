// Package router arma el handler del web tier sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	chttp "github.com/kateeridumb/Library/internal/http"
	healthctrl "github.com/kateeridumb/Library/internal/http/controllers/health"
	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	mw "github.com/kateeridumb/Library/internal/http/middlewares"
	"github.com/kateeridumb/Library/internal/rate"
	"github.com/kateeridumb/Library/internal/web/controllers"
	"github.com/kateeridumb/Library/internal/web/session"
)

type Deps struct {
	Controllers *controllers.Controllers
	Health      *healthctrl.Controllers
	Sessions    *session.Manager
	Metrics     http.Handler

	// Limiter global por IP (10/s y 60/min combinados con rate.All); nil = sin límite.
	Limiter        rate.Limiter
	ExemptPrefixes []string

	// ClientIPs: proxies delante del web tier; nil = RemoteAddr.
	ClientIPs *mw.ClientIPResolver
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestID())
	r.Use(mw.WithClientIP(d.ClientIPs))
	r.Use(mw.WithSecurityHeaders())

	r.Group(func(r chi.Router) {
		if d.Health != nil {
			r.Get("/healthz", d.Health.Health.Healthz)
		}
		if d.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", d.Metrics)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.WithRateLimit(mw.RateLimitConfig{
			Limiter:        d.Limiter,
			KeyFunc:        mw.IPOnlyRateKey,
			ExemptPrefixes: d.ExemptPrefixes,
		}))
		r.Use(mw.WithNoStore())
		r.Use(mw.WithLogging())
		r.Use(d.Sessions.Middleware())

		c := d.Controllers
		r.Post("/account/login", c.Auth.Login)
		r.Post("/account/verify-2fa", c.Auth.VerifyTwoFactor)
		r.Post("/account/guest", c.Auth.Guest)
		r.Post("/account/logout", c.Auth.Logout)
		r.Get("/account/me", c.Auth.Me)

		r.Post("/account/forgot-password", c.Password.Forgot)
		r.Get("/account/reset-password", c.Password.Validate)
		r.Post("/account/reset-password", c.Password.Reset)

		r.Post("/account/register", c.Register.Register)

		r.With(session.RequireAuthenticated()).Post("/account/toggle-2fa", c.TwoFactor.Toggle)
	})

	return chttp.WithMetrics(r)
}
