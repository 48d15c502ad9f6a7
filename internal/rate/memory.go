package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es el mismo fixed window sobre go-cache; los contadores
// viven en el proceso.
type MemoryLimiter struct {
	mu     sync.Mutex
	c      *gocache.Cache
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(prefix string, max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		prefix: prefix,
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)
	k := windowKey(l.prefix, key, winStart)
	ttl := winStart.Add(l.window).Sub(now)

	l.mu.Lock()
	defer l.mu.Unlock()
	var hits int64 = 1
	if err := l.c.Add(k, hits, ttl); err != nil {
		n, err := l.c.IncrementInt64(k, 1)
		if err != nil {
			// Expiró entre Add e Increment: arranca ventana nueva.
			l.c.Set(k, hits, ttl)
		} else {
			hits = n
		}
	}
	return buildResult(hits, l.max, ttl, l.window), nil
}
