// Package app arma los contenedores de cada tier a partir de la configuración.
// Los mains en cmd/ solo cargan config, construyen el contenedor y sirven.
package app

import (
	"context"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/kateeridumb/Library/internal/config"
	mw "github.com/kateeridumb/Library/internal/http/middlewares"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/rate"
	"github.com/kateeridumb/Library/internal/security/password"
)

// LoggerConfig deriva la config del logger para un tier.
func LoggerConfig(cfg *config.Config, service, version string) logger.Config {
	env := "dev"
	if cfg.App.Env == "prod" || cfg.App.Env == "staging" {
		env = "prod"
	}
	return logger.Config{Env: env, Level: cfg.App.LogLevel, ServiceName: service, Version: version}
}

// newSigner: ambos tiers comparten clave, issuer y audience.
func newSigner(cfg *config.Config) (*jwtx.Signer, error) {
	return jwtx.NewSigner(jwtx.Config{
		Key:          cfg.JWT.Key,
		Issuer:       cfg.JWT.Issuer,
		Audience:     cfg.JWT.Audience,
		Leeway:       cfg.JWT.Leeway,
		TwoFactorTTL: cfg.JWT.TwoFactorTTL,
		BridgeTTL:    cfg.JWT.BridgeTTL,
	})
}

func newPolicy(cfg *config.Config) (password.Policy, error) {
	pp := cfg.Security.PasswordPolicy
	bl, err := password.LoadBlacklist(cfg.Security.PasswordBlacklistPath)
	if err != nil {
		return password.Policy{}, fmt.Errorf("password blacklist: %w", err)
	}
	return password.Policy{
		MinLength:     pp.MinLength,
		RequireUpper:  pp.RequireUpper,
		RequireLower:  pp.RequireLower,
		RequireDigit:  pp.RequireDigit,
		RequireSymbol: pp.RequireSymbol,
		Blacklist:     bl,
	}, nil
}

// newRedis devuelve nil si cache.kind != redis.
func newRedis(ctx context.Context, cfg *config.Config) (*rdb.Client, error) {
	if cfg.Cache.Kind != "redis" {
		return nil, nil
	}
	c := rdb.NewClient(&rdb.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}

func limiterBuilder(client *rdb.Client, prefix string) rate.Builder {
	inner := rate.NewBuilder(client)
	return func(p string, max int, window time.Duration) rate.Limiter {
		return inner(prefix+p, max, window)
	}
}

func newClientIPs(cfg *config.Config) (*mw.ClientIPResolver, error) {
	res, err := mw.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("server.trusted_proxies: %w", err)
	}
	return res, nil
}
