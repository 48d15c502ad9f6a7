package controllers

import (
	"net/http"
	"strings"

	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	"github.com/kateeridumb/Library/internal/http/helpers"
	"github.com/kateeridumb/Library/internal/web/dto"
)

// PasswordController maneja el flujo de "olvidé mi contraseña".
type PasswordController struct {
	base
}

// Forgot maneja POST /account/forgot-password. La respuesta no depende de
// si el email existe ni de si el envío tuvo éxito.
func (c *PasswordController) Forgot(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := helpers.ReadJSON(w, r, &req, maxBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httperrors.WriteError(w, errEmailRequired)
		return
	}
	if err := c.flows.ForgotPassword(r.Context(), req.Email); err != nil {
		c.fail(w, r, "PasswordController.Forgot", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResult{Success: true, Message: dto.MsgForgotSent})
}

// Validate maneja GET /account/reset-password?token=
func (c *PasswordController) Validate(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if strings.TrimSpace(tok) == "" {
		httperrors.WriteError(w, httperrors.New(http.StatusBadRequest, "RESET_TOKEN_INVALID", dto.MsgResetTokenInvalid))
		return
	}
	if err := c.flows.ValidateResetToken(r.Context(), tok); err != nil {
		c.fail(w, r, "PasswordController.Validate", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResult{Success: true})
}

// Reset maneja POST /account/reset-password
func (c *PasswordController) Reset(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := helpers.ReadJSON(w, r, &req, maxBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := c.flows.ResetPassword(r.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		c.fail(w, r, "PasswordController.Reset", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResult{Success: true, Message: dto.MsgPasswordChanged})
}
