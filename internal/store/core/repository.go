package core

import (
	"context"
	"time"
)

type Repository interface {
	Ping(ctx context.Context) error
	Close()

	// Lecturas. Devuelven ErrNotFound si no hay fila.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// Roles
	ListRoles(ctx context.Context) ([]Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	GetRoleByID(ctx context.Context, id int64) (*Role, error)

	// CreateUser asigna u.ID. Username duplicado => ErrConflict.
	CreateUser(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, userID int64, hash, salt string) error

	// 2FA. Desactivar limpia código y expiración.
	SetTwoFactorEnabled(ctx context.Context, userID int64, enabled bool) error
	SetTwoFactorCode(ctx context.Context, userID int64, code string, expiry time.Time) error
	// ConsumeTwoFactorCode compara y limpia el código en una sola operación.
	// false si no coincide, expiró o 2FA está desactivado.
	ConsumeTwoFactorCode(ctx context.Context, userID int64, code string, now time.Time) (bool, error)
	ClearTwoFactorCode(ctx context.Context, userID int64) error

	// Reset de contraseña por hash de token.
	SetResetToken(ctx context.Context, userID int64, tokenHash string, expiry time.Time) error
	ResetTokenValid(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	// ConsumeResetToken persiste la credencial nueva y limpia el token de forma atómica.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, hash, salt string) (bool, error)
}
