// Package rate implementa limitadores fixed-window con backend Redis
// (distribuido) o go-cache (in-process).
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter es la capacidad admitir/rechazar que consumen middlewares y servicios.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Noop admite todo (rate.enabled=false o 2FA sin tope).
type Noop struct{}

func (Noop) Allow(context.Context, string) (Result, error) {
	return Result{Allowed: true, Remaining: math.MaxInt32}, nil
}

func windowKey(prefix, key string, winStart time.Time) string {
	return fmt.Sprintf("%s%s:%d", prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())
}

func buildResult(hits, max int64, ttl, window time.Duration) Result {
	allowed := hits <= max
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl
		if res.RetryAfter <= 0 {
			res.RetryAfter = time.Duration(math.Ceil(window.Seconds())) * time.Second
		}
	}
	return res
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE)
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	redisKey := windowKey(l.Prefix, key, now.Truncate(l.Window))

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	// set expiry on first hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}
	return buildResult(incr.Val(), l.Max, ttl.Val(), l.Window), nil
}

// Builder arma limiters con el backend configurado.
type Builder func(prefix string, max int, window time.Duration) Limiter

// NewBuilder usa Redis si client != nil, si no go-cache.
func NewBuilder(client *rdb.Client) Builder {
	if client != nil {
		return func(prefix string, max int, window time.Duration) Limiter {
			return NewRedisLimiter(client, prefix, max, window)
		}
	}
	return func(prefix string, max int, window time.Duration) Limiter {
		return NewMemoryLimiter(prefix, max, window)
	}
}
