package account

import (
	"errors"
	"net/http"

	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	"github.com/kateeridumb/Library/internal/http/helpers"
	mw "github.com/kateeridumb/Library/internal/http/middlewares"
	svc "github.com/kateeridumb/Library/internal/http/services/account"
	"github.com/kateeridumb/Library/internal/observability/logger"
)

// TwoFactorController maneja set/verify/clear del código y el toggle del alumno.
type TwoFactorController struct {
	service svc.TwoFactorService
}

// NewTwoFactorController crea un nuevo controller de 2FA.
func NewTwoFactorController(service svc.TwoFactorService) *TwoFactorController {
	return &TwoFactorController{service: service}
}

// SetCode maneja POST /account/set-twofactor-code
func (c *TwoFactorController) SetCode(w http.ResponseWriter, r *http.Request) {
	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.SetTwoFactorCodeRequest
	if err := helpers.ReadJSON(w, r, &req, maxAccountBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	err := c.service.SetCode(r.Context(), req)
	switch {
	case err == nil:
		writeOK(w)
	case errors.Is(err, svc.ErrInvalidTwoFactor):
		writeFailure(w, dto.MsgInvalidTwoFactor)
	case errors.Is(err, svc.ErrInvalidInput):
		httperrors.WriteError(w, httperrors.ErrInvalidFormat.WithDetail("code must be 6 digits"))
	default:
		logger.From(r.Context()).Error("set two-factor code failed",
			logger.Layer("controller"), logger.Op("TwoFactorController.SetCode"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// Verify maneja POST /account/verify-twofactor-code
func (c *TwoFactorController) Verify(w http.ResponseWriter, r *http.Request) {
	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.TwoFactorCodeRequest
	if err := helpers.ReadJSON(w, r, &req, maxAccountBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	err := c.service.Verify(r.Context(), req)
	switch {
	case err == nil:
		writeOK(w)
	case errors.Is(err, svc.ErrInvalidTwoFactor),
		errors.Is(err, svc.ErrTwoFactorFailed),
		errors.Is(err, svc.ErrTwoFactorLimited):
		// Mismo fallo genérico para token, código o tope de intentos.
		helpers.WriteJSON(w, http.StatusOK, dto.CommandResult{Success: false})
	default:
		logger.From(r.Context()).Error("verify two-factor code failed",
			logger.Layer("controller"), logger.Op("TwoFactorController.Verify"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// Clear maneja POST /account/clear-twofactor-code
func (c *TwoFactorController) Clear(w http.ResponseWriter, r *http.Request) {
	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.TwoFactorCodeRequest
	if err := helpers.ReadJSON(w, r, &req, maxAccountBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	err := c.service.Clear(r.Context(), req.TwoFactorToken)
	switch {
	case err == nil:
		writeOK(w)
	case errors.Is(err, svc.ErrInvalidTwoFactor):
		writeFailure(w, dto.MsgInvalidTwoFactor)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// Toggle maneja POST /account/toggle-twofactor (bearer, rol Student).
func (c *TwoFactorController) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TwoFactorController.Toggle"))

	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	claims := mw.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.ToggleTwoFactorRequest
	if err := helpers.ReadJSON(w, r, &req, maxAccountBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	err := c.service.Toggle(ctx, claims, req.Enabled)
	switch {
	case err == nil:
		writeOK(w)
	case errors.Is(err, svc.ErrEmailDomainRequired):
		writeFailure(w, dto.MsgGmailRequired)
	case errors.Is(err, svc.ErrNotStudent):
		httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("two-factor authentication is only available for students"))
	case errors.Is(err, svc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
	default:
		log.Error("toggle two-factor failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
