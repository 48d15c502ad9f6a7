package controllers

import (
	"net/http"

	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	"github.com/kateeridumb/Library/internal/http/helpers"
	"github.com/kateeridumb/Library/internal/web/dto"
	"github.com/kateeridumb/Library/internal/web/flows"
)

type RegisterController struct {
	base
}

// Register maneja POST /account/register
func (c *RegisterController) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := helpers.ReadJSON(w, r, &req, maxBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	err := c.flows.Register(r.Context(), flows.RegisterInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Consent:         req.Consent,
	})
	if err != nil {
		c.fail(w, r, "RegisterController.Register", err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, dto.MessageResult{Success: true, Message: dto.MsgRegistered})
}
