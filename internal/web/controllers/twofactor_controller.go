package controllers

import (
	"net/http"

	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	"github.com/kateeridumb/Library/internal/http/helpers"
	"github.com/kateeridumb/Library/internal/web/dto"
)

type TwoFactorController struct {
	base
}

// Toggle maneja POST /account/toggle-2fa (sesión autenticada).
func (c *TwoFactorController) Toggle(w http.ResponseWriter, r *http.Request) {
	var req dto.ToggleTwoFactorRequest
	if err := helpers.ReadJSON(w, r, &req, maxBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	s := current(r)
	if err := c.flows.ToggleTwoFactor(r.Context(), s.Identity, req.Enabled); err != nil {
		c.fail(w, r, "TwoFactorController.Toggle", err)
		return
	}
	msg := dto.MsgTwoFactorDisabled
	if req.Enabled {
		msg = dto.MsgTwoFactorEnabled
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResult{Success: true, Message: msg})
}
