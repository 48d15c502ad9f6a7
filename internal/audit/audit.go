// Package audit emite eventos de seguridad (logins, resets, cambios de 2FA) sobre
// el logger del request, con nombre "audit" para poder rutearlos aparte.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/kateeridumb/Library/internal/observability/logger"
)

// Eventos.
const (
	LoginSucceeded     = "login.succeeded"
	LoginFailed        = "login.failed"
	LoginChallenged    = "login.two_factor_challenged"
	TwoFactorVerified  = "two_factor.verified"
	TwoFactorToggled   = "two_factor.toggled"
	PasswordResetAsked = "password_reset.requested"
	PasswordResetDone  = "password_reset.completed"
	AccountRegistered  = "account.registered"
	GuestIssued        = "guest.issued"
)

// Log escribe el evento. Nunca recibe secretos: ni passwords, ni códigos, ni tokens.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	logger.From(ctx).Named("audit").WithOptions(zap.AddCallerSkip(1)).
		Info(event, append(fields, zap.String("event", event))...)
}
