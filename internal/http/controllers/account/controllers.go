// Package account contiene los controllers de /account/*.
//
// Contrato: los fallos de autenticación responden 200 con success:false y un
// mensaje genérico; los problemas de transporte usan AppError con su status.
package account

import (
	"net/http"

	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	"github.com/kateeridumb/Library/internal/http/helpers"
	svc "github.com/kateeridumb/Library/internal/http/services/account"
)

const maxAccountBodySize = 64 * 1024 // 64KB

// Controllers agrupa todos los controllers del dominio account.
type Controllers struct {
	Login     *LoginController
	TwoFactor *TwoFactorController
	Guest     *GuestController
	Reset     *ResetController
	Register  *RegisterController
}

// NewControllers crea el agregador de controllers account.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Login:     NewLoginController(s.Login),
		TwoFactor: NewTwoFactorController(s.TwoFactor),
		Guest:     NewGuestController(s.Guest),
		Reset:     NewResetController(s.Reset),
		Register:  NewRegisterController(s.Register),
	}
}

func writeOK(w http.ResponseWriter) {
	helpers.WriteJSON(w, http.StatusOK, dto.CommandResult{Success: true})
}

func writeFailure(w http.ResponseWriter, message string) {
	helpers.WriteJSON(w, http.StatusOK, dto.CommandResult{Success: false, Message: message})
}
