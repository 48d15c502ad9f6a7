// Package flows orquesta los casos de uso del web tier sobre el API tier:
// login con 2FA, guest, reset de contraseña, registro y toggle de 2FA.
//
// No toca cookies: devuelve identidades y challenges que el controller guarda
// en la sesión.
package flows

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	"github.com/kateeridumb/Library/internal/metrics"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/security/password"
	tokens "github.com/kateeridumb/Library/internal/security/token"
	"github.com/kateeridumb/Library/internal/store/core"
	"github.com/kateeridumb/Library/internal/validation"
	"github.com/kateeridumb/Library/internal/web/apiclient"
	"github.com/kateeridumb/Library/internal/web/session"
)

var (
	ErrMissingCredentials = errors.New("flows: username and password are required")
	ErrInvalidCredentials = errors.New("flows: invalid credentials")
	ErrDeliveryFailed     = errors.New("flows: code delivery failed")
	ErrNoPendingChallenge = errors.New("flows: no pending two-factor challenge")
	ErrMissingCode        = errors.New("flows: code is required")
	ErrInvalidCode        = errors.New("flows: invalid or expired code")
	ErrMissingFields      = errors.New("flows: missing fields")
	ErrPasswordMismatch   = errors.New("flows: passwords do not match")
	ErrResetInvalid       = errors.New("flows: reset link invalid or expired")
	ErrConsentRequired    = errors.New("flows: consent required")
	ErrInvalidName        = errors.New("flows: invalid name")
	ErrInvalidEmail       = errors.New("flows: invalid email")
	ErrNotStudent         = errors.New("flows: two-factor is only for students")
	ErrGuestUnavailable   = errors.New("flows: guest login failed")
)

// PolicyError lleva las razones de rechazo de la política de contraseñas.
type PolicyError struct{ Reasons []string }

func (e *PolicyError) Error() string { return "flows: weak password: " + strings.Join(e.Reasons, "; ") }

// RejectedError: la API respondió success:false con un mensaje para el usuario.
type RejectedError struct{ Message string }

func (e *RejectedError) Error() string { return "flows: rejected: " + e.Message }

// API es el subconjunto de apiclient.Client que usan los flujos.
type API interface {
	Login(ctx context.Context, username, password string) (*dto.LoginResult, error)
	SetTwoFactorCode(ctx context.Context, challenge, code string, expiry time.Time) (*dto.CommandResult, error)
	VerifyTwoFactorCode(ctx context.Context, challenge, code string) (*dto.CommandResult, error)
	ClearTwoFactorCode(ctx context.Context, challenge string) error
	GuestLogin(ctx context.Context) (*dto.GuestLoginResult, error)
	ToggleTwoFactor(ctx context.Context, enabled bool) (*dto.CommandResult, error)
	ForgotPassword(ctx context.Context, email string) (*dto.ForgotPasswordResult, error)
	ValidateResetToken(ctx context.Context, token string) (bool, error)
	ResetPassword(ctx context.Context, token, password string) (*dto.CommandResult, error)
	Register(ctx context.Context, in dto.RegisterRequest) (*dto.CommandResult, error)
}

// Notifier entrega los emails transaccionales (email.Mailer).
type Notifier interface {
	SendTwoFactorCode(ctx context.Context, to, firstName, code string, ttl time.Duration) error
	SendPasswordReset(ctx context.Context, to, link string, ttl time.Duration) error
}

var _ API = (*apiclient.Client)(nil)

type Deps struct {
	API           API
	Mailer        Notifier
	Codes         tokens.CodeGenerator
	Policy        password.Policy
	CodeTTL       time.Duration
	ResetTTL      time.Duration
	PublicBaseURL string
	EmailDomain   string
	Now           func() time.Time
}

type Service struct {
	d Deps
}

func New(d Deps) *Service {
	if d.Codes == nil {
		d.Codes = tokens.CryptoCodes{}
	}
	if d.CodeTTL <= 0 {
		d.CodeTTL = 10 * time.Minute
	}
	if d.ResetTTL <= 0 {
		d.ResetTTL = 24 * time.Hour
	}
	if d.EmailDomain == "" {
		d.EmailDomain = "@gmail.com"
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	d.PublicBaseURL = strings.TrimRight(d.PublicBaseURL, "/")
	return &Service{d: d}
}

// LoginOutcome: exactamente uno de Identity o Pending está presente.
type LoginOutcome struct {
	Identity *session.Identity
	Pending  *session.Pending
}

// Login autentica contra la API. Si el usuario requiere 2FA genera el código,
// lo registra en la API y lo envía por email; si el envío falla el código se
// invalida y no queda ningún estado a medias.
func (s *Service) Login(ctx context.Context, username, pwd string) (*LoginOutcome, error) {
	log := logger.From(ctx).With(logger.Layer("flow"), logger.Component("web.flows"), logger.Op("Login"))
	if strings.TrimSpace(username) == "" || strings.TrimSpace(pwd) == "" {
		return nil, ErrMissingCredentials
	}

	res, err := s.d.API.Login(ctx, username, pwd)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, ErrInvalidCredentials
	}
	id := session.Identity{UserID: res.UserID, Username: res.Username, Role: res.RoleName, Email: res.Email, FirstName: res.FirstName}

	if !res.RequiresTwoFactor || res.RoleName != core.RoleStudent {
		return &LoginOutcome{Identity: &id}, nil
	}

	code, err := s.d.Codes.NewCode()
	if err != nil {
		return nil, fmt.Errorf("flows: generate code: %w", err)
	}
	set, err := s.d.API.SetTwoFactorCode(ctx, res.TwoFactorToken, code, s.d.Now().Add(s.d.CodeTTL))
	if err != nil {
		return nil, err
	}
	if !set.Success {
		return nil, ErrInvalidCredentials
	}

	if err := s.d.Mailer.SendTwoFactorCode(ctx, res.Email, res.FirstName, code, s.d.CodeTTL); err != nil {
		log.Error("two-factor delivery failed", logger.UserID(res.UserID), logger.Email(res.Email), logger.Err(err))
		if cerr := s.d.API.ClearTwoFactorCode(ctx, res.TwoFactorToken); cerr != nil {
			log.Warn("clear two-factor code failed", logger.UserID(res.UserID), logger.Err(cerr))
		}
		return nil, ErrDeliveryFailed
	}

	log.Info("two-factor challenge sent", logger.UserID(res.UserID))
	return &LoginOutcome{Pending: &session.Pending{Token: res.TwoFactorToken, Identity: id}}, nil
}

// RedeemTwoFactor canjea el código del challenge pendiente. En fallo el
// challenge sigue siendo válido para reintentar.
func (s *Service) RedeemTwoFactor(ctx context.Context, pending *session.Pending, code string) (*session.Identity, error) {
	if pending == nil || pending.Token == "" {
		return nil, ErrNoPendingChallenge
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMissingCode
	}
	res, err := s.d.API.VerifyTwoFactorCode(ctx, pending.Token, code)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, ErrInvalidCode
	}
	id := pending.Identity
	return &id, nil
}

// Guest obtiene el usuario invitado. La sesión siempre lleva rol Guest.
func (s *Service) Guest(ctx context.Context) (*session.Identity, error) {
	res, err := s.d.API.GuestLogin(ctx)
	if err != nil {
		return nil, err
	}
	if !res.Success || res.UserID == 0 {
		return nil, ErrGuestUnavailable
	}
	return &session.Identity{UserID: res.UserID, Username: "Guest", Role: core.RoleGuest, FirstName: "Guest"}, nil
}

// ForgotPassword nunca revela si el email existe: el mensaje de respuesta es
// siempre el mismo y los fallos solo se registran.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	log := logger.From(ctx).With(logger.Layer("flow"), logger.Component("web.flows"), logger.Op("ForgotPassword"))
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrMissingFields
	}

	res, err := s.d.API.ForgotPassword(ctx, email)
	if err != nil {
		log.Error("forgot-password upstream failed", logger.Email(email), logger.Err(err))
		return nil
	}
	if !res.UserExists || res.Token == "" {
		return nil
	}

	link := s.d.PublicBaseURL + "/account/reset-password?token=" + url.QueryEscape(res.Token)
	if err := s.d.Mailer.SendPasswordReset(ctx, email, link, s.d.ResetTTL); err != nil {
		log.Error("reset delivery failed", logger.Email(email), logger.Err(err))
		metrics.PasswordReset.WithLabelValues("deliver", "error").Inc()
		return nil
	}
	metrics.PasswordReset.WithLabelValues("deliver", "ok").Inc()
	return nil
}

func (s *Service) ValidateResetToken(ctx context.Context, tok string) error {
	if strings.TrimSpace(tok) == "" {
		return ErrResetInvalid
	}
	ok, err := s.d.API.ValidateResetToken(ctx, tok)
	if err != nil {
		return err
	}
	if !ok {
		return ErrResetInvalid
	}
	return nil
}

// ResetPassword valida confirmación y política antes de llamar a la API.
func (s *Service) ResetPassword(ctx context.Context, tok, pwd, confirm string) error {
	if strings.TrimSpace(tok) == "" {
		return ErrResetInvalid
	}
	if pwd == "" || confirm == "" {
		return ErrMissingFields
	}
	if pwd != confirm {
		return ErrPasswordMismatch
	}
	if ok, reasons := s.d.Policy.Validate(pwd); !ok {
		return &PolicyError{Reasons: reasons}
	}
	res, err := s.d.API.ResetPassword(ctx, tok, pwd)
	if err != nil {
		return err
	}
	if !res.Success {
		return ErrResetInvalid
	}
	return nil
}

type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
	Consent         bool
}

func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	if !in.Consent {
		return ErrConsentRequired
	}
	in.FirstName, in.LastName = strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	in.Email, in.Username = strings.TrimSpace(in.Email), strings.TrimSpace(in.Username)
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Username == "" || in.Password == "" {
		return ErrMissingFields
	}
	if !validation.ValidPersonName(in.FirstName) || !validation.ValidPersonName(in.LastName) {
		return ErrInvalidName
	}
	if !validation.ValidEmail(in.Email) || !validation.HasEmailDomain(in.Email, s.d.EmailDomain) {
		return ErrInvalidEmail
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if ok, reasons := s.d.Policy.Validate(in.Password); !ok {
		return &PolicyError{Reasons: reasons}
	}

	res, err := s.d.API.Register(ctx, dto.RegisterRequest{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Username:  in.Username,
		Password:  in.Password,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return &RejectedError{Message: res.Message}
	}
	return nil
}

// ToggleTwoFactor activa o desactiva 2FA del usuario de la sesión. La llamada
// sale con el bridge token de ctx.
func (s *Service) ToggleTwoFactor(ctx context.Context, actor *session.Identity, enabled bool) error {
	if actor == nil || actor.UserID == 0 {
		return apiclient.ErrUnauthorized
	}
	if actor.Role != core.RoleStudent {
		return ErrNotStudent
	}
	res, err := s.d.API.ToggleTwoFactor(ctx, enabled)
	if err != nil {
		return err
	}
	if !res.Success {
		return &RejectedError{Message: res.Message}
	}
	logger.From(ctx).With(logger.Layer("flow"), logger.Op("ToggleTwoFactor")).Info("two-factor toggled", logger.UserID(actor.UserID), logger.Bool("enabled", enabled))
	return nil
}
