// Package bootstrap provisiona cuentas iniciales (staff y usuarios de prueba) en el credential store.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/security/password"
	"github.com/kateeridumb/Library/internal/store/core"
)

// ErrReservedUsername: el username pertenece a una identidad del sistema (invitado).
var ErrReservedUsername = errors.New("bootstrap: reserved username")

// UserSpec describe una cuenta a provisionar.
type UserSpec struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      string
	TwoFactor bool
}

// EnsureUser crea la cuenta si el username no existe. Devuelve false si ya estaba;
// una cuenta existente no se modifica. reserved lista usernames que no se
// provisionan (el del invitado).
func EnsureUser(ctx context.Context, repo core.Repository, h *password.Hasher, want UserSpec, reserved ...string) (bool, error) {
	log := logger.From(ctx).With(logger.Component("bootstrap"), logger.Op("EnsureUser"), logger.Username(want.Username))

	for _, r := range reserved {
		if r != "" && strings.EqualFold(strings.TrimSpace(want.Username), r) {
			return false, fmt.Errorf("%w: %q", ErrReservedUsername, want.Username)
		}
	}

	role, err := repo.GetRoleByName(ctx, want.Role)
	if err != nil {
		return false, fmt.Errorf("role %q: %w", want.Role, err)
	}
	hash, salt, err := h.CreateCredential(want.Password)
	if err != nil {
		return false, err
	}
	u := &core.User{
		Username:     want.Username,
		Email:        want.Email,
		FirstName:    want.FirstName,
		LastName:     want.LastName,
		RoleID:       role.ID,
		RoleName:     role.Name,
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			log.Debug("user already exists")
			return false, nil
		}
		return false, err
	}
	if want.TwoFactor {
		if err := repo.SetTwoFactorEnabled(ctx, u.ID, true); err != nil {
			return true, err
		}
	}
	log.Info("user provisioned", logger.UserID(u.ID), logger.Role(role.Name))
	return true, nil
}
