// Package dto define los cuerpos JSON del web tier (navegador <-> web).
package dto

// Mensajes visibles para el usuario.
const (
	MsgLoginRequired      = "Login and password are required"
	MsgInvalidCredentials = "Invalid login or password"
	MsgDeliveryFailed     = "Error sending confirmation code. Try later."
	MsgSessionExpired     = "Session expired. Please sign in again."
	MsgCodeRequired       = "Please enter the confirmation code"
	MsgInvalidCode        = "Invalid or expired confirmation code"
	MsgEmailRequired      = "Please provide an email"
	MsgForgotSent         = "If this email is registered, you will receive instructions."
	MsgResetTokenInvalid  = "Invalid password reset token"
	MsgResetLinkInvalid   = "Password reset link is invalid or expired. Request a new link."
	MsgFillAllFields      = "Please fill in all fields"
	MsgPasswordMismatch   = "Passwords do not match"
	MsgPasswordChanged    = "Password changed successfully. You can now sign in."
	MsgConsentRequired    = "Consent to personal data processing is required"
	MsgNamesLettersOnly   = "First and last name must contain only letters"
	MsgEmailDomain        = "Email must end with %s"
	MsgRegistered         = "Registration completed. You can now sign in."
	MsgTwoFactorStudents  = "Two-factor authentication is available only for students"
	MsgTwoFactorEnabled   = "Two-factor authentication enabled"
	MsgTwoFactorDisabled  = "Two-factor authentication disabled"
	MsgGuestUnavailable   = "Guest access is temporarily unavailable"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type VerifyTwoFactorRequest struct {
	Code string `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Consent         bool   `json:"consent"`
}

type ToggleTwoFactorRequest struct {
	Enabled bool `json:"enabled"`
}

// Me describe la sesión actual.
type Me struct {
	Authenticated    bool   `json:"authenticated"`
	TwoFactorPending bool   `json:"twoFactorPending,omitempty"`
	UserID           int64  `json:"userId,omitempty"`
	Username         string `json:"username,omitempty"`
	Role             string `json:"role,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
}

type AuthResult struct {
	Success           bool   `json:"success"`
	RequiresTwoFactor bool   `json:"requiresTwoFactor,omitempty"`
	User              *Me    `json:"user,omitempty"`
	Message           string `json:"message,omitempty"`
}

type MessageResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
