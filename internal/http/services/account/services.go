package account

import (
	"errors"
	"strings"
	"time"

	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/rate"
	"github.com/kateeridumb/Library/internal/security/password"
	"github.com/kateeridumb/Library/internal/store/core"
)

// Errores de negocio. Los controllers los traducen al contrato {success:false}.
var (
	ErrMissingFields       = errors.New("missing required fields")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidTwoFactor    = errors.New("invalid two-factor token")
	ErrTwoFactorFailed     = errors.New("two-factor verification failed")
	ErrTwoFactorLimited    = errors.New("too many two-factor attempts")
	ErrEmailDomainRequired = errors.New("email domain not allowed for two-factor")
	ErrNotStudent          = errors.New("two-factor is only available for students")
	ErrResetInvalid        = errors.New("reset token invalid or expired")
	ErrPasswordPolicy      = errors.New("password does not meet policy")
	ErrDefaultRoleMissing  = errors.New("default role not found")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidInput        = errors.New("invalid input")
	ErrGuestUnavailable    = errors.New("guest identity unavailable")
)

// GuestConfig describe la fila de invitado que se crea bajo demanda.
type GuestConfig struct {
	Username  string
	Email     string
	FirstName string
}

// Deps contiene las dependencias para crear los services account.
type Deps struct {
	Repo   core.Repository
	Hasher *password.Hasher
	Signer *jwtx.Signer
	Policy password.Policy

	// Attempts limita verificaciones 2FA por usuario. nil = sin tope.
	Attempts rate.Limiter

	ResetTTL        time.Duration
	CodeTTL         time.Duration
	DefaultRole     string
	TwoFactorDomain string
	Guest           GuestConfig

	// Now es inyectable para tests.
	Now func() time.Time
}

func (d *Deps) defaults() {
	if d.Attempts == nil {
		d.Attempts = rate.Noop{}
	}
	if d.ResetTTL <= 0 {
		d.ResetTTL = 24 * time.Hour
	}
	if d.CodeTTL <= 0 {
		d.CodeTTL = 10 * time.Minute
	}
	if d.DefaultRole == "" {
		d.DefaultRole = core.RoleStudent
	}
	if d.TwoFactorDomain == "" {
		d.TwoFactorDomain = "@gmail.com"
	}
	if d.Guest.Username == "" {
		d.Guest.Username = "guest"
	}
	if d.Guest.Email == "" {
		d.Guest.Email = "guest@local"
	}
	if d.Guest.FirstName == "" {
		d.Guest.FirstName = "Guest"
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// reservedUsername: el username del invitado no se puede registrar, ni con
// otra capitalización.
func (d *Deps) reservedUsername(username string) bool {
	return strings.EqualFold(strings.TrimSpace(username), d.Guest.Username)
}

// Services agrupa todos los services del dominio account.
type Services struct {
	Login     LoginService
	TwoFactor TwoFactorService
	Guest     GuestService
	Reset     PasswordResetService
	Register  RegisterService
}

// NewServices crea el agregador de services account.
func NewServices(d Deps) Services {
	d.defaults()
	return Services{
		Login:     NewLoginService(d),
		TwoFactor: NewTwoFactorService(d),
		Guest:     NewGuestService(d),
		Reset:     NewPasswordResetService(d),
		Register:  NewRegisterService(d),
	}
}
