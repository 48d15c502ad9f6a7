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

// RegisterController maneja el alta y el listado de roles.
type RegisterController struct {
	service svc.RegisterService
}

// NewRegisterController crea un nuevo controller de registro.
func NewRegisterController(service svc.RegisterService) *RegisterController {
	return &RegisterController{service: service}
}

// Register maneja POST /account/register
func (c *RegisterController) Register(w http.ResponseWriter, r *http.Request) {
	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req dto.RegisterRequest
	if err := helpers.ReadJSON(w, r, &req, maxAccountBodySize); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	err := c.service.Register(r.Context(), req)
	switch {
	case err == nil:
		writeOK(w)
	case errors.Is(err, svc.ErrDefaultRoleMissing):
		writeFailure(w, dto.MsgDefaultRoleNotFound)
	case errors.Is(err, svc.ErrUsernameTaken):
		writeFailure(w, dto.MsgUsernameTaken)
	case errors.Is(err, svc.ErrPasswordPolicy):
		writeFailure(w, httperrors.ErrPasswordTooWeak.Message)
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrInvalidInput):
		httperrors.WriteError(w, httperrors.ErrInvalidFormat)
	default:
		logger.From(r.Context()).Error("register failed",
			logger.Layer("controller"), logger.Op("RegisterController.Register"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// Roles maneja GET /account/roles
func (c *RegisterController) Roles(w http.ResponseWriter, r *http.Request) {
	if !helpers.RequireMethod(w, r, http.MethodGet) {
		return
	}
	roles, err := c.service.ListRoles(r.Context())
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, roles)
}
