// Package helpers contiene utilidades HTTP compartidas por controllers de ambos tiers.
package helpers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/kateeridumb/Library/internal/http/errors"
)

// DefaultMaxBody es el límite de body para endpoints JSON (64KB).
const DefaultMaxBody int64 = 64 * 1024

// ReadJSON decodifica el body en v con límite de tamaño.
// Tolera campos desconocidos; un body vacío es ErrInvalidJSON.
// Devuelve un *errors.AppError listo para WriteError.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any, max int64) error {
	if max <= 0 {
		max = DefaultMaxBody
	}
	if ct := strings.ToLower(r.Header.Get("Content-Type")); ct != "" && !strings.Contains(ct, "application/json") {
		return errors.ErrInvalidJSON.WithDetail("Content-Type must be application/json")
	}
	r.Body = http.MaxBytesReader(w, r.Body, max)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if stderrors.As(err, &mbe) {
			return errors.ErrBodyTooLarge.WithCause(err)
		}
		if stderrors.Is(err, io.EOF) {
			return errors.ErrInvalidJSON.WithDetail("empty body")
		}
		return errors.ErrInvalidJSON.WithCause(err)
	}
	return nil
}

// WriteJSON escribe v como JSON con el status indicado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RequireMethod responde 405 con Allow si el método no coincide.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	errors.WriteError(w, errors.ErrMethodNotAllowed.WithDetail(method))
	return false
}
