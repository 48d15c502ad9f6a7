package account

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kateeridumb/Library/internal/audit"
	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/store/core"
)

// guestProvisionTimeout acota el provision compartido, que no depende del
// request que lo disparó.
const guestProvisionTimeout = 10 * time.Second

type guestService struct {
	deps  Deps
	group singleflight.Group
}

// NewGuestService crea el service de invitado.
func NewGuestService(deps Deps) GuestService {
	deps.defaults()
	return &guestService{deps: deps}
}

func (s *guestService) GuestLogin(ctx context.Context) (*dto.GuestLoginResult, error) {
	// Llamadas concurrentes en el proceso comparten un único provision; la
	// cancelación de un caller no aborta a los demás.
	ch := s.group.DoChan(s.deps.Guest.Username, func() (any, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), guestProvisionTimeout)
		defer cancel()
		return s.ensureGuest(pctx)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	id := res.Val.(int64)
	audit.Log(ctx, audit.GuestIssued, logger.UserID(id))
	return &dto.GuestLoginResult{Success: true, UserID: id}, nil
}

func (s *guestService) ensureGuest(ctx context.Context) (int64, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("account.guest"),
		logger.Op("GuestLogin"),
	)

	u, err := s.deps.Repo.GetUserByUsername(ctx, s.deps.Guest.Username)
	if err == nil {
		return s.adopt(ctx, u)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return 0, err
	}

	role, err := s.guestRole(ctx)
	if err != nil {
		return 0, err
	}

	// Password aleatoria y descartada: la fila de invitado no admite login por password.
	secret, err := randomSecret()
	if err != nil {
		return 0, err
	}
	hash, salt, err := s.deps.Hasher.CreateCredential(secret)
	if err != nil {
		return 0, err
	}

	guest := &core.User{
		Username:     s.deps.Guest.Username,
		Email:        s.deps.Guest.Email,
		FirstName:    s.deps.Guest.FirstName,
		LastName:     s.deps.Guest.FirstName,
		RoleID:       role.ID,
		RoleName:     role.Name,
		PasswordHash: hash,
		PasswordSalt: salt,
		IsGuest:      true,
	}
	if err := s.deps.Repo.CreateUser(ctx, guest); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// Otra instancia ganó la carrera: releer.
			u, err := s.deps.Repo.GetUserByUsername(ctx, s.deps.Guest.Username)
			if err != nil {
				return 0, err
			}
			return s.adopt(ctx, u)
		}
		return 0, err
	}

	log.Info("guest identity provisioned", logger.UserID(guest.ID))
	return guest.ID, nil
}

// adopt reutiliza solo filas creadas por guest-login. Una cuenta normal con el
// mismo username tiene password conocida y no puede servir de invitado.
func (s *guestService) adopt(ctx context.Context, u *core.User) (int64, error) {
	if !u.IsGuest {
		logger.From(ctx).Error("guest username held by a regular account",
			logger.Component("account.guest"), logger.UserID(u.ID))
		return 0, ErrGuestUnavailable
	}
	return u.ID, nil
}

// guestRole prefiere Student y si no existe toma el primer rol.
func (s *guestService) guestRole(ctx context.Context) (*core.Role, error) {
	role, err := s.deps.Repo.GetRoleByName(ctx, core.RoleStudent)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	roles, err := s.deps.Repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, ErrGuestUnavailable
	}
	return &roles[0], nil
}
