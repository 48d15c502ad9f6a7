package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kateeridumb/Library/internal/observability/logger"
)

func TestLog_UsesRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))

	Log(ctx, LoginFailed, logger.Username("reader"), logger.String("reason", "bad_password"))

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	require.Equal(t, "audit", e.LoggerName)
	require.Equal(t, LoginFailed, e.Message)
	fields := e.ContextMap()
	require.Equal(t, LoginFailed, fields["event"])
	require.Equal(t, "reader", fields["username"])
	require.Equal(t, "bad_password", fields["reason"])
}

func TestLog_ReportsCallerOfLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core, zap.AddCaller()))

	Log(ctx, GuestIssued)

	e := logs.All()[0]
	require.True(t, e.Caller.Defined)
	require.Equal(t, "audit_test.go", filepath.Base(e.Caller.File))
}
