// Package account contiene los services de /account/*: login, 2FA, guest,
// reset de contraseña y registro.
package account

import (
	"context"

	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
)

// LoginService autentica con username/password.
type LoginService interface {
	// Login devuelve la identidad o indica que hace falta el segundo factor.
	Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResult, error)
}

// TwoFactorService opera sobre el challenge token firmado y el código persistido.
type TwoFactorService interface {
	SetCode(ctx context.Context, in dto.SetTwoFactorCodeRequest) error
	// Verify consume el código; un segundo uso falla.
	Verify(ctx context.Context, in dto.TwoFactorCodeRequest) error
	Clear(ctx context.Context, token string) error
	Toggle(ctx context.Context, actor *jwtx.Claims, enabled bool) error
}

// GuestService resuelve (o crea) la identidad compartida de invitado.
type GuestService interface {
	GuestLogin(ctx context.Context) (*dto.GuestLoginResult, error)
}

// PasswordResetService emite, valida y consume tokens de reset.
type PasswordResetService interface {
	Forgot(ctx context.Context, email string) (*dto.ForgotPasswordResult, error)
	ValidateToken(ctx context.Context, token string) (bool, error)
	Reset(ctx context.Context, in dto.ResetPasswordRequest) error
}

// RegisterService da de alta usuarios con el rol por defecto.
type RegisterService interface {
	Register(ctx context.Context, in dto.RegisterRequest) error
	ListRoles(ctx context.Context) ([]dto.RoleItem, error)
}
