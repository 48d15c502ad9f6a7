// Package middlewares reúne los decoradores HTTP compartidos por el API y el web tier.
package middlewares

import "net/http"

// Middleware es asignable a chi.Router.Use.
type Middleware func(http.Handler) http.Handler
