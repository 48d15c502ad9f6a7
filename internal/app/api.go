package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	rdb "github.com/redis/go-redis/v9"

	"github.com/kateeridumb/Library/internal/config"
	chttp "github.com/kateeridumb/Library/internal/http"
	accountctrl "github.com/kateeridumb/Library/internal/http/controllers/account"
	healthctrl "github.com/kateeridumb/Library/internal/http/controllers/health"
	"github.com/kateeridumb/Library/internal/http/router"
	accountsvc "github.com/kateeridumb/Library/internal/http/services/account"
	healthsvc "github.com/kateeridumb/Library/internal/http/services/health"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/rate"
	"github.com/kateeridumb/Library/internal/security/password"
	"github.com/kateeridumb/Library/internal/store/core"
	"github.com/kateeridumb/Library/internal/store/memory"
	"github.com/kateeridumb/Library/internal/store/pg"
)

// API es el contenedor del API tier.
type API struct {
	Store   core.Repository
	Handler http.Handler

	redis *rdb.Client
}

// Close libera store y redis.
func (a *API) Close() {
	if a == nil {
		return
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// OpenStore abre el credential store según storage.driver.
func OpenStore(ctx context.Context, cfg *config.Config) (core.Repository, func() *pgxpool.Pool, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.From(ctx).Warn("using in-memory credential store", logger.Component("app"))
		return memory.New(), nil, nil
	case "postgres":
		if cfg.Storage.AutoMigrate {
			if err := pg.Migrate(ctx, cfg.Storage.DSN); err != nil {
				return nil, nil, err
			}
		}
		s, err := pg.New(ctx, cfg.Storage.DSN, pg.PoolConfig{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("pg: %w", err)
		}
		return s, s.Pool, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewHasher según security.argon2.
func NewHasher(cfg *config.Config) *password.Hasher {
	a := cfg.Security.Argon2
	return password.NewHasher(password.Params{
		Memory:      a.MemoryKiB,
		Time:        a.Time,
		Parallelism: a.Parallelism,
		KeyLen:      a.KeyLen,
	}, cfg.Security.AllowLegacyHashes)
}

// BuildAPI arma store, services, limiters y router del API tier.
func BuildAPI(ctx context.Context, cfg *config.Config, version string) (*API, error) {
	if err := cfg.ValidateAPI(); err != nil {
		return nil, err
	}
	log := logger.From(ctx).With(logger.Component("app"), logger.Op("BuildAPI"))

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

	a := &API{}
	store, pool, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store

	if a.redis, err = newRedis(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	build := limiterBuilder(a.redis, cfg.Cache.Redis.Prefix)
	var attempts rate.Limiter = rate.Noop{}
	if cfg.Auth.TwoFactor.MaxAttempts > 0 {
		attempts = build("2fa:", cfg.Auth.TwoFactor.MaxAttempts, cfg.Auth.TwoFactor.AttemptWindow)
	}

	services := accountsvc.NewServices(accountsvc.Deps{
		Repo:            store,
		Hasher:          NewHasher(cfg),
		Signer:          signer,
		Policy:          policy,
		Attempts:        attempts,
		ResetTTL:        cfg.Auth.Reset.TTL,
		CodeTTL:         cfg.Auth.TwoFactor.CodeTTL,
		DefaultRole:     cfg.Auth.DefaultRole,
		TwoFactorDomain: cfg.Auth.TwoFactor.EmailDomain,
		Guest: accountsvc.GuestConfig{
			Username:  cfg.Auth.Guest.Username,
			Email:     cfg.Auth.Guest.Email,
			FirstName: cfg.Auth.Guest.FirstName,
		},
	})

	hdeps := healthsvc.Deps{Signer: signer, DBCheck: store.Ping, Version: version}
	if a.redis != nil {
		r := a.redis
		hdeps.CacheCheck = func(ctx context.Context) error { return r.Ping(ctx).Err() }
		hdeps.CacheName = "redis"
	}

	metricsHandler, err := chttp.RegisterMetrics(chttp.MetricsConfig{Service: "api", Pool: pool})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	deps := router.APIRouterDeps{
		Account:     accountctrl.NewControllers(services),
		Health:      healthctrl.NewControllers(healthsvc.NewServices(hdeps)),
		Signer:      signer,
		Metrics:     metricsHandler,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
		ClientIPs:   clientIPs,
	}
	if cfg.Rate.Enabled {
		deps.LoginLimiter = build("login:", cfg.Rate.Login.Limit, cfg.Rate.Login.Window)
		deps.ForgotLimiter = build("forgot:", cfg.Rate.Forgot.Limit, cfg.Rate.Forgot.Window)
	}
	a.Handler = router.NewAPIRouter(deps)

	log.Info("api tier ready",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", cfg.Rate.Enabled))
	return a, nil
}
