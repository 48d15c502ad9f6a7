package account

import (
	"context"
	"errors"
	"strings"

	"github.com/kateeridumb/Library/internal/audit"
	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/store/core"
	"github.com/kateeridumb/Library/internal/validation"
)

type registerService struct {
	deps Deps
}

// NewRegisterService crea el service de registro.
func NewRegisterService(deps Deps) RegisterService {
	deps.defaults()
	return &registerService{deps: deps}
}

func (s *registerService) Register(ctx context.Context, in dto.RegisterRequest) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("account.register"),
		logger.Op("Register"),
	)

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Username == "" || in.Password == "" {
		return ErrMissingFields
	}
	if !validation.ValidPersonName(in.FirstName) || !validation.ValidPersonName(in.LastName) ||
		!validation.ValidEmail(in.Email) || !validation.ValidUsername(in.Username) {
		return ErrInvalidInput
	}
	if s.deps.reservedUsername(in.Username) {
		log.Warn("reserved username refused", logger.Username(in.Username))
		return ErrUsernameTaken
	}
	if ok, reasons := s.deps.Policy.Validate(in.Password); !ok {
		log.Debug("password policy rejected", logger.Any("reasons", reasons))
		return ErrPasswordPolicy
	}

	// RoleID del request se ignora: el alta pública siempre usa el rol por defecto.
	role, err := s.deps.Repo.GetRoleByName(ctx, s.deps.DefaultRole)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Error("default role missing", logger.Role(s.deps.DefaultRole))
			return ErrDefaultRoleMissing
		}
		return err
	}

	hash, salt, err := s.deps.Hasher.CreateCredential(in.Password)
	if err != nil {
		return err
	}

	u := &core.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		RoleID:       role.ID,
		RoleName:     role.Name,
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	if err := s.deps.Repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			log.Info("username taken", logger.Username(in.Username))
			return ErrUsernameTaken
		}
		log.Error("create user failed", logger.Err(err))
		return err
	}

	log.Info("user registered", logger.UserID(u.ID), logger.Role(role.Name))
	audit.Log(ctx, audit.AccountRegistered, logger.UserID(u.ID), logger.Role(role.Name))
	return nil
}

func (s *registerService) ListRoles(ctx context.Context) ([]dto.RoleItem, error) {
	roles, err := s.deps.Repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RoleItem, 0, len(roles))
	for _, r := range roles {
		out = append(out, dto.RoleItem{ID: r.ID, Name: r.Name})
	}
	return out, nil
}
