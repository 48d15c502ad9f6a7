package controllers

import (
	"net/http"

	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	"github.com/kateeridumb/Library/internal/http/helpers"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/web/dto"
	"github.com/kateeridumb/Library/internal/web/session"
)

// AuthController maneja login, 2FA, guest, logout y me.
type AuthController struct {
	base
}

func current(r *http.Request) *session.Session {
	if s := session.FromContext(r.Context()); s != nil {
		return s
	}
	return &session.Session{}
}

// establish deja la identidad en la sesión rotando el ID.
func (c *AuthController) establish(w http.ResponseWriter, r *http.Request, s *session.Session, id *session.Identity) bool {
	s.Pending = nil
	s.Identity = id
	if err := c.sessions.Rotate(r.Context(), w, s); err != nil {
		c.fail(w, r, "establish", err)
		return false
	}
	logger.From(r.Context()).Info("session established",
		logger.Layer("controller"), logger.UserID(id.UserID), logger.Role(id.Role))
	return true
}

// Login maneja POST /account/login
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := helpers.ReadJSON(w, r, &req, maxBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	s := current(r)

	out, err := c.flows.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		c.fail(w, r, "AuthController.Login", err)
		return
	}

	if out.Pending != nil {
		s.Identity = nil
		s.Pending = out.Pending
		if err := c.sessions.Rotate(r.Context(), w, s); err != nil {
			c.fail(w, r, "AuthController.Login", err)
			return
		}
		helpers.WriteJSON(w, http.StatusOK, dto.AuthResult{Success: true, RequiresTwoFactor: true})
		return
	}

	if !c.establish(w, r, s, out.Identity) {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.AuthResult{Success: true, User: me(s)})
}

// VerifyTwoFactor maneja POST /account/verify-2fa
func (c *AuthController) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyTwoFactorRequest
	if err := helpers.ReadJSON(w, r, &req, maxBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	s := current(r)

	id, err := c.flows.RedeemTwoFactor(r.Context(), s.Pending, req.Code)
	if err != nil {
		// el challenge pendiente se conserva para reintentar
		c.fail(w, r, "AuthController.VerifyTwoFactor", err)
		return
	}
	if !c.establish(w, r, s, id) {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.AuthResult{Success: true, User: me(s)})
}

// Guest maneja POST /account/guest
func (c *AuthController) Guest(w http.ResponseWriter, r *http.Request) {
	s := current(r)
	id, err := c.flows.Guest(r.Context())
	if err != nil {
		c.fail(w, r, "AuthController.Guest", err)
		return
	}
	if !c.establish(w, r, s, id) {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.AuthResult{Success: true, User: me(s)})
}

// Logout maneja POST /account/logout. Idempotente.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	c.dropSession(r.Context(), w)
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResult{Success: true})
}

// Me maneja GET /account/me
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, me(current(r)))
}
