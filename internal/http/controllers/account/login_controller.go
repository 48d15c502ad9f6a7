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

// LoginController maneja el endpoint de login.
type LoginController struct {
	service svc.LoginService
}

// NewLoginController crea un nuevo controller de login.
func NewLoginController(service svc.LoginService) *LoginController {
	return &LoginController{service: service}
}

// Login maneja POST /account/login
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.LoginRequest
	if err := helpers.ReadJSON(w, r, &req, maxAccountBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	result, err := c.service.Login(ctx, req)
	if err != nil {
		if errors.Is(err, svc.ErrInvalidCredentials) {
			helpers.WriteJSON(w, http.StatusOK, dto.LoginResult{Success: false, Error: dto.MsgInvalidCredentials})
			return
		}
		log.Error("login failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, result)
}
