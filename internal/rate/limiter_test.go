package rate

import (
	"context"
	"os"
	"testing"
	"time"

	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter("t:", 3, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, int64(3-i), res.Remaining)
	}
	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, time.Minute, res.RetryAfter)

	other, _ := l.Allow(ctx, "5.6.7.8")
	require.True(t, other.Allowed, "keys are independent")

	now = now.Add(time.Minute)
	res, _ = l.Allow(ctx, "1.2.3.4")
	require.True(t, res.Allowed, "new window resets the counter")
}

func TestAll_RequiresEveryLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	perSec := NewMemoryLimiter("s:", 2, time.Second)
	perMin := NewMemoryLimiter("m:", 3, time.Minute)
	perSec.now = func() time.Time { return now }
	perMin.now = func() time.Time { return now }
	all := All{perSec, perMin}
	ctx := context.Background()

	r1, _ := all.Allow(ctx, "ip")
	r2, _ := all.Allow(ctx, "ip")
	r3, _ := all.Allow(ctx, "ip")
	require.True(t, r1.Allowed)
	require.True(t, r2.Allowed)
	require.False(t, r3.Allowed, "per-second limit")

	now = now.Add(time.Second)
	r4, _ := all.Allow(ctx, "ip")
	require.False(t, r4.Allowed, "per-minute limit")
	require.Greater(t, r4.RetryAfter, 50*time.Second)
}

func TestNoop(t *testing.T) {
	res, err := Noop{}.Allow(context.Background(), "x")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := rdb.NewClient(&rdb.Options{Addr: addr})
	defer client.Close()

	l := NewBuilder(client)("rl-test:"+time.Now().Format("150405.000")+":", 2, time.Minute)
	ctx := context.Background()
	r1, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, r1.Allowed)
	r2, _ := l.Allow(ctx, "k")
	require.True(t, r2.Allowed)
	r3, _ := l.Allow(ctx, "k")
	require.False(t, r3.Allowed)
	require.Greater(t, r3.RetryAfter, time.Duration(0))
}
