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

// GuestController maneja el bootstrap de invitado.
type GuestController struct {
	service svc.GuestService
}

// NewGuestController crea un nuevo controller de invitado.
func NewGuestController(service svc.GuestService) *GuestController {
	return &GuestController{service: service}
}

// GuestLogin maneja POST /account/guest-login (sin body).
func (c *GuestController) GuestLogin(w http.ResponseWriter, r *http.Request) {
	if !helpers.RequireMethod(w, r, http.MethodPost) {
		return
	}

	res, err := c.service.GuestLogin(r.Context())
	if err != nil {
		if errors.Is(err, svc.ErrGuestUnavailable) {
			helpers.WriteJSON(w, http.StatusOK, dto.GuestLoginResult{Success: false})
			return
		}
		logger.From(r.Context()).Error("guest login failed",
			logger.Layer("controller"), logger.Op("GuestController.GuestLogin"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
