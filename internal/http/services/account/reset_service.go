package account

import (
	"context"
	"errors"
	"strings"

	"github.com/kateeridumb/Library/internal/audit"
	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	"github.com/kateeridumb/Library/internal/metrics"
	"github.com/kateeridumb/Library/internal/observability/logger"
	tokens "github.com/kateeridumb/Library/internal/security/token"
	"github.com/kateeridumb/Library/internal/store/core"
)

// resetTokenBytes: 32 bytes aleatorios, base64url sin padding.
const resetTokenBytes = 32

func randomSecret() (string, error) { return tokens.GenerateOpaqueToken(24) }

type passwordResetService struct {
	deps Deps
}

// NewPasswordResetService crea el service de reset de contraseña.
func NewPasswordResetService(deps Deps) PasswordResetService {
	deps.defaults()
	return &passwordResetService{deps: deps}
}

func (s *passwordResetService) Forgot(ctx context.Context, email string) (*dto.ForgotPasswordResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("account.reset"),
		logger.Op("Forgot"),
	)

	email = strings.TrimSpace(email)
	if email == "" {
		metrics.PasswordReset.WithLabelValues("request", "unknown").Inc()
		return &dto.ForgotPasswordResult{UserExists: false}, nil
	}

	u, err := s.deps.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Debug("reset requested for unknown email", logger.Email(email))
			metrics.PasswordReset.WithLabelValues("request", "unknown").Inc()
			return &dto.ForgotPasswordResult{UserExists: false}, nil
		}
		metrics.PasswordReset.WithLabelValues("request", "error").Inc()
		return nil, err
	}

	raw, err := tokens.GenerateOpaqueToken(resetTokenBytes)
	if err != nil {
		return nil, err
	}
	expiry := s.deps.Now().UTC().Add(s.deps.ResetTTL)

	// Sólo se persiste el hash; emitir uno nuevo pisa el anterior.
	if err := s.deps.Repo.SetResetToken(ctx, u.ID, tokens.SHA256Base64URL(raw), expiry); err != nil {
		log.Error("store reset token failed", logger.UserID(u.ID), logger.Err(err))
		metrics.PasswordReset.WithLabelValues("request", "error").Inc()
		return nil, err
	}

	metrics.PasswordReset.WithLabelValues("request", "ok").Inc()
	log.Info("reset token issued", logger.UserID(u.ID), logger.Token(raw))
	audit.Log(ctx, audit.PasswordResetAsked, logger.UserID(u.ID))
	id := u.ID
	return &dto.ForgotPasswordResult{UserExists: true, UserID: &id, Token: raw}, nil
}

func (s *passwordResetService) ValidateToken(ctx context.Context, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		metrics.PasswordReset.WithLabelValues("validate", "invalid").Inc()
		return false, nil
	}
	ok, err := s.deps.Repo.ResetTokenValid(ctx, tokens.SHA256Base64URL(token), s.deps.Now().UTC())
	if err != nil {
		metrics.PasswordReset.WithLabelValues("validate", "error").Inc()
		return false, err
	}
	if !ok {
		logger.From(ctx).Debug("reset token rejected", logger.Component("account.reset"), logger.Token(token))
		metrics.PasswordReset.WithLabelValues("validate", "invalid").Inc()
		return false, nil
	}
	metrics.PasswordReset.WithLabelValues("validate", "ok").Inc()
	return true, nil
}

func (s *passwordResetService) Reset(ctx context.Context, in dto.ResetPasswordRequest) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("account.reset"),
		logger.Op("Reset"),
	)

	token := strings.TrimSpace(in.Token)
	if token == "" {
		metrics.PasswordReset.WithLabelValues("consume", "invalid").Inc()
		return ErrResetInvalid
	}
	if in.Password == "" {
		return ErrMissingFields
	}
	if ok, _ := s.deps.Policy.Validate(in.Password); !ok {
		return ErrPasswordPolicy
	}

	hash, salt, err := s.deps.Hasher.CreateCredential(in.Password)
	if err != nil {
		return err
	}

	ok, err := s.deps.Repo.ConsumeResetToken(ctx, tokens.SHA256Base64URL(token), s.deps.Now().UTC(), hash, salt)
	if err != nil {
		log.Error("consume reset token failed", logger.Err(err))
		metrics.PasswordReset.WithLabelValues("consume", "error").Inc()
		return err
	}
	if !ok {
		log.Info("reset token not consumable", logger.Token(token))
		metrics.PasswordReset.WithLabelValues("consume", "invalid").Inc()
		return ErrResetInvalid
	}

	metrics.PasswordReset.WithLabelValues("consume", "ok").Inc()
	log.Info("password reset completed")
	audit.Log(ctx, audit.PasswordResetDone)
	return nil
}
