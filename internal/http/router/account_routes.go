package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ctrl "github.com/kateeridumb/Library/internal/http/controllers/account"
	mw "github.com/kateeridumb/Library/internal/http/middlewares"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/rate"
	"github.com/kateeridumb/Library/internal/store/core"
)

// AccountRouterDeps contiene las dependencias para el router de account.
type AccountRouterDeps struct {
	Controllers   *ctrl.Controllers
	Signer        *jwtx.Signer
	LoginLimiter  rate.Limiter
	ForgotLimiter rate.Limiter
	ClientIPs     *mw.ClientIPResolver
}

// RegisterAccountRoutes registra /account/*.
func RegisterAccountRoutes(r chi.Router, deps AccountRouterDeps) {
	c := deps.Controllers

	r.Group(func(r chi.Router) {
		r.Use(mw.WithRecover())
		r.Use(mw.WithRequestID())
		r.Use(mw.WithClientIP(deps.ClientIPs))
		r.Use(mw.WithSecurityHeaders())
		r.Use(mw.WithNoStore())
		r.Use(mw.WithLogging())

		// POST /account/login (límite por IP)
		r.With(limited(deps.LoginLimiter)).Post("/account/login", c.Login.Login)

		// 2FA por challenge token
		r.Post("/account/set-twofactor-code", c.TwoFactor.SetCode)
		r.Post("/account/verify-twofactor-code", c.TwoFactor.Verify)
		r.Post("/account/clear-twofactor-code", c.TwoFactor.Clear)

		r.Post("/account/guest-login", c.Guest.GuestLogin)

		// Reset
		r.With(limited(deps.ForgotLimiter)).Post("/account/forgot-password", c.Reset.Forgot)
		r.Get("/account/validate-reset-token", c.Reset.Validate)
		r.Post("/account/reset-password", c.Reset.Reset)

		r.Post("/account/register", c.Register.Register)
		r.Get("/account/roles", c.Register.Roles)

		// POST /account/toggle-twofactor (bearer + Student)
		r.With(mw.RequireAuth(deps.Signer), mw.RequireRole(core.RoleStudent)).
			Post("/account/toggle-twofactor", c.TwoFactor.Toggle)
	})
}

// limited aplica rate limit por IP si hay limiter configurado.
func limited(l rate.Limiter) func(http.Handler) http.Handler {
	return mw.WithRateLimit(mw.RateLimitConfig{Limiter: l, KeyFunc: mw.IPOnlyRateKey})
}
