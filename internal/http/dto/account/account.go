// Package account define los DTOs JSON de /account/*. Los nombres de campo son
// camelCase porque ambos tiers comparten el contrato.
package account

import "time"

// LoginRequest es el body de POST /account/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult es la respuesta de login. Con Success=false sólo Error viaja.
type LoginResult struct {
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	RequiresTwoFactor bool   `json:"requiresTwoFactor"`
	UserID            int64  `json:"userId"`
	TwoFactorToken    string `json:"twoFactorToken,omitempty"`
	Username          string `json:"username"`
	RoleName          string `json:"role"`
	Email             string `json:"email"`
	FirstName         string `json:"firstName"`
}

// SetTwoFactorCodeRequest guarda el código generado por el web tier.
type SetTwoFactorCodeRequest struct {
	TwoFactorToken string    `json:"twoFactorToken"`
	Code           string    `json:"code"`
	ExpiryUTC      time.Time `json:"expiryUtc"`
}

// TwoFactorCodeRequest sirve a verify-twofactor-code y clear-twofactor-code.
type TwoFactorCodeRequest struct {
	TwoFactorToken string `json:"twoFactorToken"`
	Code           string `json:"code,omitempty"`
}

// GuestLoginResult es la respuesta de POST /account/guest-login.
type GuestLoginResult struct {
	Success bool  `json:"success"`
	UserID  int64 `json:"userId"`
}

// ToggleTwoFactorRequest: el actor sale del bearer, UserID se ignora.
type ToggleTwoFactorRequest struct {
	UserID  int64 `json:"userId,omitempty"`
	Enabled bool  `json:"enabled"`
}

// CommandResult es la respuesta genérica {success, message?}.
type CommandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ForgotPasswordRequest es el body de POST /account/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResult devuelve el token crudo al web tier (contrato servicio a servicio).
type ForgotPasswordResult struct {
	UserExists bool   `json:"userExists"`
	UserID     *int64 `json:"userId,omitempty"`
	Token      string `json:"token,omitempty"`
}

// ResetPasswordRequest es el body de POST /account/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// RegisterRequest es el body de POST /account/register.
// RoleID se acepta por compatibilidad pero el rol asignado es siempre el default.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	RoleID    *int64 `json:"roleId,omitempty"`
}

// RoleItem es cada elemento de GET /account/roles.
type RoleItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Mensajes visibles del contrato.
const (
	MsgInvalidCredentials  = "Invalid login or password"
	MsgInvalidTwoFactor    = "Invalid 2FA token."
	MsgGmailRequired       = "Gmail email required for 2FA"
	MsgResetLinkInvalid    = "link invalid or expired"
	MsgDefaultRoleNotFound = "Default role Student not found"
	MsgUsernameTaken       = "Username is already taken"
)
