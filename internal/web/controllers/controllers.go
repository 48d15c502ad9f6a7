// Package controllers contiene los handlers JSON del web tier.
//
// A diferencia del API tier, aquí un fallo de autenticación responde 401 y
// los problemas del API upstream se traducen a 502.
package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/web/apiclient"
	"github.com/kateeridumb/Library/internal/web/dto"
	"github.com/kateeridumb/Library/internal/web/flows"
	"github.com/kateeridumb/Library/internal/web/session"
)

const maxBodySize = 32 * 1024

var (
	errLoginRequired   = httperrors.New(http.StatusBadRequest, "MISSING_FIELDS", dto.MsgLoginRequired)
	errFillAllFields   = httperrors.New(http.StatusBadRequest, "MISSING_FIELDS", dto.MsgFillAllFields)
	errCodeRequired    = httperrors.New(http.StatusBadRequest, "MISSING_FIELDS", dto.MsgCodeRequired)
	errEmailRequired   = httperrors.New(http.StatusBadRequest, "MISSING_FIELDS", dto.MsgEmailRequired)
	errInvalidCode     = httperrors.New(http.StatusUnauthorized, "INVALID_CODE", dto.MsgInvalidCode)
	errPasswordMatch   = httperrors.New(http.StatusBadRequest, "PASSWORD_MISMATCH", dto.MsgPasswordMismatch)
	errResetInvalid    = httperrors.New(http.StatusBadRequest, "RESET_LINK_INVALID", dto.MsgResetLinkInvalid)
	errConsent         = httperrors.New(http.StatusBadRequest, "CONSENT_REQUIRED", dto.MsgConsentRequired)
	errNames           = httperrors.New(http.StatusBadRequest, "INVALID_NAME", dto.MsgNamesLettersOnly)
	errGuest           = httperrors.New(http.StatusServiceUnavailable, "GUEST_UNAVAILABLE", dto.MsgGuestUnavailable)
	errSessionRequired = httperrors.New(http.StatusUnauthorized, "SESSION_EXPIRED", dto.MsgSessionExpired)
)

// Deps agrupa lo que comparten todos los controllers web.
type Deps struct {
	Flows       *flows.Service
	Sessions    *session.Manager
	EmailDomain string
}

type Controllers struct {
	Auth      *AuthController
	Password  *PasswordController
	Register  *RegisterController
	TwoFactor *TwoFactorController
}

func NewControllers(d Deps) *Controllers {
	if d.EmailDomain == "" {
		d.EmailDomain = "@gmail.com"
	}
	b := base{flows: d.Flows, sessions: d.Sessions, emailDomain: d.EmailDomain}
	return &Controllers{
		Auth:      &AuthController{base: b},
		Password:  &PasswordController{base: b},
		Register:  &RegisterController{base: b},
		TwoFactor: &TwoFactorController{base: b},
	}
}

type base struct {
	flows       *flows.Service
	sessions    *session.Manager
	emailDomain string
}

// mapError traduce errores de flows/apiclient a AppError. keepSession=false indica
// que la sesión debe descartarse (la API rechazó la identidad).
func (b base) mapError(err error) (appErr *httperrors.AppError, keepSession bool) {
	var pe *flows.PolicyError
	var re *flows.RejectedError
	switch {
	case errors.Is(err, flows.ErrMissingCredentials):
		return errLoginRequired, true
	case errors.Is(err, flows.ErrInvalidCredentials):
		return httperrors.ErrInvalidCredentials, true
	case errors.Is(err, flows.ErrDeliveryFailed):
		return httperrors.ErrDeliveryFailed, true
	case errors.Is(err, flows.ErrNoPendingChallenge):
		return errSessionRequired, true
	case errors.Is(err, flows.ErrMissingCode):
		return errCodeRequired, true
	case errors.Is(err, flows.ErrInvalidCode):
		return errInvalidCode, true
	case errors.Is(err, flows.ErrMissingFields):
		return errFillAllFields, true
	case errors.Is(err, flows.ErrPasswordMismatch):
		return errPasswordMatch, true
	case errors.Is(err, flows.ErrResetInvalid):
		return errResetInvalid, true
	case errors.Is(err, flows.ErrConsentRequired):
		return errConsent, true
	case errors.Is(err, flows.ErrInvalidName):
		return errNames, true
	case errors.Is(err, flows.ErrInvalidEmail):
		return httperrors.New(http.StatusBadRequest, "INVALID_EMAIL", fmt.Sprintf(dto.MsgEmailDomain, b.emailDomain)), true
	case errors.Is(err, flows.ErrNotStudent):
		return httperrors.ErrForbidden.WithDetail(dto.MsgTwoFactorStudents), true
	case errors.Is(err, flows.ErrGuestUnavailable):
		return errGuest, true
	case errors.As(err, &pe):
		return httperrors.ErrPasswordTooWeak.WithDetail(strings.Join(pe.Reasons, "; ")), true
	case errors.As(err, &re):
		return httperrors.New(http.StatusBadRequest, "REJECTED", re.Message), true
	case errors.Is(err, apiclient.ErrUnauthorized):
		return errSessionRequired, false
	case errors.Is(err, apiclient.ErrRateLimited):
		return httperrors.ErrRateLimitExceeded, true
	case errors.Is(err, apiclient.ErrUpstream), errors.Is(err, apiclient.ErrBadRequest):
		return httperrors.ErrBadGateway.WithCause(err), true
	default:
		return httperrors.ErrInternalServerError.WithCause(err), true
	}
}

func (b base) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	appErr, keep := b.mapError(err)
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op(op))
	if appErr.HTTPStatus >= 500 {
		log.Error("request failed", logger.Err(err))
	} else {
		log.Debug("request rejected", logger.String("code", appErr.Code))
	}
	if !keep {
		b.dropSession(ctx, w)
	}
	httperrors.WriteError(w, appErr)
}

func (b base) dropSession(ctx context.Context, w http.ResponseWriter) {
	if err := b.sessions.Destroy(ctx, w, session.FromContext(ctx)); err != nil {
		logger.From(ctx).Warn("session destroy failed", logger.Component("session"), logger.Err(err))
	}
}

func me(s *session.Session) *dto.Me {
	switch {
	case s.Authenticated():
		return &dto.Me{
			Authenticated: true,
			UserID:        s.Identity.UserID,
			Username:      s.Identity.Username,
			Role:          s.Identity.Role,
			FirstName:     s.Identity.FirstName,
		}
	case s != nil && s.Pending != nil:
		return &dto.Me{TwoFactorPending: true}
	default:
		return &dto.Me{}
	}
}
