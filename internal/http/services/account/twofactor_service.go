package account

import (
	"context"
	"errors"
	"strconv"

	"github.com/kateeridumb/Library/internal/audit"
	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/metrics"
	"github.com/kateeridumb/Library/internal/observability/logger"
	tokens "github.com/kateeridumb/Library/internal/security/token"
	"github.com/kateeridumb/Library/internal/store/core"
	"github.com/kateeridumb/Library/internal/validation"
)

type twoFactorService struct {
	deps Deps
}

// NewTwoFactorService crea el service de segundo factor.
func NewTwoFactorService(deps Deps) TwoFactorService {
	deps.defaults()
	return &twoFactorService{deps: deps}
}

// challenge valida el token de propósito "2fa" y devuelve sus claims.
func (s *twoFactorService) challenge(ctx context.Context, token string) (*jwtx.Claims, error) {
	if token == "" {
		return nil, ErrInvalidTwoFactor
	}
	cl, err := s.deps.Signer.Validate(token, jwtx.PurposeTwoFactor)
	if err != nil {
		logger.From(ctx).Debug("two-factor token rejected", logger.Component("account.2fa"),
			logger.Token(token), logger.Err(err))
		return nil, ErrInvalidTwoFactor
	}
	return cl, nil
}

func validCode(code string) bool {
	n, err := strconv.Atoi(code)
	return err == nil && len(code) == 6 && n >= tokens.CodeMin && n <= tokens.CodeMax
}

func (s *twoFactorService) SetCode(ctx context.Context, in dto.SetTwoFactorCodeRequest) error {
	cl, err := s.challenge(ctx, in.TwoFactorToken)
	if err != nil {
		return err
	}
	if !validCode(in.Code) {
		return ErrInvalidInput
	}

	// La expiración nunca supera now+CodeTTL; cero equivale al máximo.
	now := s.deps.Now().UTC()
	maxExpiry := now.Add(s.deps.CodeTTL)
	expiry := in.ExpiryUTC.UTC()
	if in.ExpiryUTC.IsZero() || expiry.After(maxExpiry) {
		expiry = maxExpiry
	}

	if err := s.deps.Repo.SetTwoFactorCode(ctx, cl.UserID, in.Code, expiry); err != nil {
		logger.From(ctx).Error("store two-factor code failed",
			logger.Layer("service"), logger.Component("account.2fa"), logger.Op("SetCode"),
			logger.UserID(cl.UserID), logger.Err(err))
		return err
	}
	return nil
}

func (s *twoFactorService) Verify(ctx context.Context, in dto.TwoFactorCodeRequest) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("account.2fa"),
		logger.Op("Verify"),
	)

	cl, err := s.challenge(ctx, in.TwoFactorToken)
	if err != nil {
		metrics.TwoFactorVerifications.WithLabelValues("invalid").Inc()
		return err
	}
	log = log.With(logger.UserID(cl.UserID))

	// Cada intento consume un hit, acierte o no. Si el backend falla se deja pasar.
	res, err := s.deps.Attempts.Allow(ctx, "2fa:"+strconv.FormatInt(cl.UserID, 10))
	if err != nil {
		log.Warn("attempt limiter error", logger.Err(err))
	} else if !res.Allowed {
		log.Warn("two-factor attempts exceeded")
		metrics.TwoFactorVerifications.WithLabelValues("limited").Inc()
		return ErrTwoFactorLimited
	}

	if !validCode(in.Code) {
		metrics.TwoFactorVerifications.WithLabelValues("invalid").Inc()
		return ErrTwoFactorFailed
	}

	ok, err := s.deps.Repo.ConsumeTwoFactorCode(ctx, cl.UserID, in.Code, s.deps.Now().UTC())
	if err != nil {
		log.Error("consume two-factor code failed", logger.Err(err))
		metrics.TwoFactorVerifications.WithLabelValues("error").Inc()
		return err
	}
	if !ok {
		log.Info("two-factor code mismatch")
		metrics.TwoFactorVerifications.WithLabelValues("invalid").Inc()
		return ErrTwoFactorFailed
	}

	metrics.TwoFactorVerifications.WithLabelValues("ok").Inc()
	log.Info("two-factor verified")
	audit.Log(ctx, audit.TwoFactorVerified, logger.UserID(cl.UserID))
	return nil
}

func (s *twoFactorService) Clear(ctx context.Context, token string) error {
	cl, err := s.challenge(ctx, token)
	if err != nil {
		return err
	}
	return s.deps.Repo.ClearTwoFactorCode(ctx, cl.UserID)
}

func (s *twoFactorService) Toggle(ctx context.Context, actor *jwtx.Claims, enabled bool) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("account.2fa"),
		logger.Op("Toggle"),
	)
	if actor == nil || actor.UserID <= 0 {
		return ErrInvalidCredentials
	}
	log = log.With(logger.UserID(actor.UserID))

	if actor.Role() != core.RoleStudent {
		return ErrNotStudent
	}

	user, err := s.deps.Repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	// El rol persistido manda sobre el del token.
	if user.RoleName != core.RoleStudent {
		return ErrNotStudent
	}

	if enabled && !validation.HasEmailDomain(user.Email, s.deps.TwoFactorDomain) {
		log.Info("two-factor enable rejected: email domain", logger.Email(user.Email))
		return ErrEmailDomainRequired
	}

	if err := s.deps.Repo.SetTwoFactorEnabled(ctx, user.ID, enabled); err != nil {
		log.Error("toggle two-factor failed", logger.Err(err))
		return err
	}
	log.Info("two-factor toggled", logger.Bool("enabled", enabled))
	audit.Log(ctx, audit.TwoFactorToggled, logger.UserID(user.ID), logger.Bool("enabled", enabled))
	return nil
}
