package core

import "time"

// Nombres de rol conocidos por la capa de auth.
const (
	RoleStudent                   = "Student"
	RoleGuest                     = "Guest"
	RoleAdmin                     = "Admin"
	RoleLibrarian                 = "Librarian"
	RoleInstitutionRepresentative = "InstitutionRepresentative"
)

type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User es el registro de credenciales. PasswordResetToken guarda el hash
// del token, nunca el valor crudo.
type User struct {
	ID                       int64
	Username                 string
	Email                    string
	FirstName                string
	LastName                 string
	RoleID                   int64
	RoleName                 string
	PasswordHash             string
	PasswordSalt             string
	IsBlocked                bool
	IsTwoFactorEnabled       bool
	// IsGuest marca la fila provisionada por guest-login; solo esa se reutiliza.
	IsGuest                  bool
	TwoFactorCode            *string
	TwoFactorCodeExpiry      *time.Time
	PasswordResetToken       *string
	PasswordResetTokenExpiry *time.Time
	CreatedAt                time.Time
}

// RequiresTwoFactor solo aplica a estudiantes.
func (u *User) RequiresTwoFactor() bool {
	return u != nil && u.IsTwoFactorEnabled && u.RoleName == RoleStudent
}
