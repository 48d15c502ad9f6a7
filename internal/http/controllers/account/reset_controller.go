package account

import (
	"errors"
	"net/http"

	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	"github.com/kateeridumb/Library/internal/http/helpers"
	svc "github.com/kateeridumb/Library/internal/http/services/account"
	"github.com/kateeridumb/Library/internal/observability/logger"
)

// ResetController maneja forgot / validate / reset.
type ResetController struct {
	service svc.PasswordResetService
}

// NewResetController crea un nuevo controller de reset.
func NewResetController(service svc.PasswordResetService) *ResetController {
	return &ResetController{service: service}
}

// Forgot maneja POST /account/forgot-password. Devuelve el token crudo:
// este endpoint sólo lo consume el web tier.
func (c *ResetController) Forgot(w http.ResponseWriter, r *http.Request) {
	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.ForgotPasswordRequest
	if err := helpers.ReadJSON(w, r, &req, maxAccountBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.Forgot(r.Context(), req.Email)
	if err != nil {
		logger.From(r.Context()).Error("forgot password failed",
			logger.Layer("controller"), logger.Op("ResetController.Forgot"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// Validate maneja GET /account/validate-reset-token?token=
func (c *ResetController) Validate(w http.ResponseWriter, r *http.Request) {
	if !helpers.RequireMethod(w, r, http.MethodGet) {
		return
	}
	ok, err := c.service.ValidateToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.CommandResult{Success: ok})
}

// Reset maneja POST /account/reset-password
func (c *ResetController) Reset(w http.ResponseWriter, r *http.Request) {
	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.ResetPasswordRequest
	if err := helpers.ReadJSON(w, r, &req, maxAccountBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	err := c.service.Reset(r.Context(), req)
	switch {
	case err == nil:
		writeOK(w)
	case errors.Is(err, svc.ErrResetInvalid):
		// Misma respuesta sin importar la causa.
		writeFailure(w, dto.MsgResetLinkInvalid)
	case errors.Is(err, svc.ErrPasswordPolicy):
		writeFailure(w, httperrors.ErrPasswordTooWeak.Message)
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token and password are required"))
	default:
		logger.From(r.Context()).Error("reset password failed",
			logger.Layer("controller"), logger.Op("ResetController.Reset"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
