package account

import (
	"context"
	"errors"

	"github.com/kateeridumb/Library/internal/audit"
	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	"github.com/kateeridumb/Library/internal/metrics"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/store/core"
)

type loginService struct {
	deps Deps
}

// NewLoginService crea un nuevo servicio de login.
func NewLoginService(deps Deps) LoginService {
	deps.defaults()
	return &loginService{deps: deps}
}

func (s *loginService) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("account.login"),
		logger.Op("Login"),
	)

	// Username exacto y case-sensitive: no se normaliza.
	if in.Username == "" || in.Password == "" {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	user, err := s.deps.Repo.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Debug("user not found")
			audit.Log(ctx, audit.LoginFailed, logger.Username(in.Username), logger.String("reason", "unknown_user"))
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidCredentials
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	log = log.With(logger.UserID(user.ID))

	if user.IsBlocked {
		log.Info("user blocked")
		audit.Log(ctx, audit.LoginFailed, logger.UserID(user.ID), logger.String("reason", "blocked"))
		metrics.LoginAttempts.WithLabelValues("blocked").Inc()
		return nil, ErrInvalidCredentials
	}

	if !s.deps.Hasher.Verify(in.Password, user.PasswordHash, user.PasswordSalt) {
		log.Debug("password check failed")
		audit.Log(ctx, audit.LoginFailed, logger.UserID(user.ID), logger.String("reason", "bad_password"))
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	// Upgrade de hash: un fallo no bloquea el login.
	if s.deps.Hasher.NeedsRehash(user.PasswordHash) {
		if hash, salt, err := s.deps.Hasher.CreateCredential(in.Password); err != nil {
			log.Warn("rehash failed", logger.Err(err))
		} else if err := s.deps.Repo.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
			log.Warn("rehash persist failed", logger.Err(err))
		} else {
			log.Info("password hash upgraded")
		}
	}

	out := &dto.LoginResult{
		Success:           true,
		RequiresTwoFactor: user.RequiresTwoFactor(),
		UserID:            user.ID,
		Username:          user.Username,
		RoleName:          user.RoleName,
		Email:             user.Email,
		FirstName:         user.FirstName,
	}

	if out.RequiresTwoFactor {
		tok, err := s.deps.Signer.IssueTwoFactor(user.ID, user.Username, user.RoleName)
		if err != nil {
			log.Error("issue two-factor token failed", logger.Err(err))
			metrics.LoginAttempts.WithLabelValues("error").Inc()
			return nil, err
		}
		out.TwoFactorToken = tok
		metrics.LoginAttempts.WithLabelValues("two_factor").Inc()
		log.Info("login requires two-factor")
		audit.Log(ctx, audit.LoginChallenged, logger.UserID(user.ID))
		return out, nil
	}

	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	log.Info("login ok", logger.Role(user.RoleName))
	audit.Log(ctx, audit.LoginSucceeded, logger.UserID(user.ID), logger.Role(user.RoleName))
	return out, nil
}
