package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/kateeridumb/Library/internal/cache"
	"github.com/kateeridumb/Library/internal/config"
	"github.com/kateeridumb/Library/internal/email"
	chttp "github.com/kateeridumb/Library/internal/http"
	healthctrl "github.com/kateeridumb/Library/internal/http/controllers/health"
	healthsvc "github.com/kateeridumb/Library/internal/http/services/health"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/rate"
	"github.com/kateeridumb/Library/internal/web/apiclient"
	"github.com/kateeridumb/Library/internal/web/bridge"
	"github.com/kateeridumb/Library/internal/web/controllers"
	"github.com/kateeridumb/Library/internal/web/flows"
	"github.com/kateeridumb/Library/internal/web/router"
	"github.com/kateeridumb/Library/internal/web/session"
)

// Web es el contenedor del web tier.
type Web struct {
	Handler  http.Handler
	Sessions *session.Manager
	API      *apiclient.Client

	sessionStore cache.Client
	redis        *rdb.Client
}

func (w *Web) Close() {
	if w == nil {
		return
	}
	if w.sessionStore != nil {
		_ = w.sessionStore.Close()
	} else if w.redis != nil {
		_ = w.redis.Close()
	}
}

// NewSMTPSender arma el sender desde la sección smtp.
func NewSMTPSender(cfg *config.Config) *email.SMTPSender {
	s := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
	s.TLSMode = cfg.SMTP.TLS
	s.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
	return s
}

// BuildWeb arma sesiones, cliente del API, flows y router del web tier.
// sender nil = SMTP según config.
func BuildWeb(ctx context.Context, cfg *config.Config, version string, sender email.Sender) (*Web, error) {
	if err := cfg.ValidateWeb(); err != nil {
		return nil, err
	}
	log := logger.From(ctx).With(logger.Component("app"), logger.Op("BuildWeb"))

	signer, err := newSigner(cfg)
	if err != nil {
		return nil, err
	}
	policy, err := newPolicy(cfg)
	if err != nil {
		return nil, err
	}
	clientIPs, err := newClientIPs(cfg)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		sender = NewSMTPSender(cfg)
	}
	mailer, err := email.NewMailer(sender)
	if err != nil {
		return nil, err
	}

	w := &Web{}
	if w.redis, err = newRedis(ctx, cfg); err != nil {
		return nil, err
	}
	prefix := cfg.Cache.Redis.Prefix + "web:"
	if w.redis != nil {
		w.sessionStore = cache.WrapRedis(w.redis, prefix, cfg.Web.Session.TTL)
	} else {
		w.sessionStore = cache.NewMemory(prefix, cfg.Web.Session.TTL)
	}
	w.Sessions = session.NewManager(w.sessionStore, session.Config{
		CookieName: cfg.Web.Session.CookieName,
		TTL:        cfg.Web.Session.TTL,
		Secure:     cfg.Web.Session.Secure,
		SameSite:   session.ParseSameSite(cfg.Web.Session.SameSite),
	})

	w.API = apiclient.New(cfg.Web.APIBaseURL, &http.Client{
		Timeout:   cfg.Web.APITimeout,
		Transport: bridge.New(http.DefaultTransport, signer, session.BridgeIdentity),
	})

	fl := flows.New(flows.Deps{
		API:           w.API,
		Mailer:        mailer,
		Policy:        policy,
		CodeTTL:       cfg.Auth.TwoFactor.CodeTTL,
		ResetTTL:      cfg.Auth.Reset.TTL,
		PublicBaseURL: cfg.Web.PublicBaseURL,
		EmailDomain:   cfg.Auth.TwoFactor.EmailDomain,
	})

	health := healthctrl.NewControllers(healthsvc.NewServices(healthsvc.Deps{
		Signer:     signer,
		CacheCheck: w.API.Ping,
		CacheName:  "api",
		Version:    version,
	}))

	metricsHandler, err := chttp.RegisterMetrics(chttp.MetricsConfig{Service: "web"})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	deps := router.Deps{
		Controllers: controllers.NewControllers(controllers.Deps{
			Flows:       fl,
			Sessions:    w.Sessions,
			EmailDomain: cfg.Auth.TwoFactor.EmailDomain,
		}),
		Health:         health,
		Sessions:       w.Sessions,
		Metrics:        metricsHandler,
		ExemptPrefixes: cfg.Rate.Exempt,
		ClientIPs:      clientIPs,
	}
	if cfg.Rate.Enabled {
		build := limiterBuilder(w.redis, cfg.Cache.Redis.Prefix+"web:")
		deps.Limiter = rate.All{
			build("rl:s:", cfg.Rate.PerSecond, time.Second),
			build("rl:m:", cfg.Rate.PerMinute, time.Minute),
		}
	}
	w.Handler = router.New(deps)

	log.Info("web tier ready",
		logger.String("api", cfg.Web.APIBaseURL),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", cfg.Rate.Enabled))
	return w, nil
}
