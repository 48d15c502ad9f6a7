package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de dominio (login, 2FA, reset, email). Viven en un paquete aparte
// para que services y email las usen sin importar la capa HTTP.

var (
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Intentos de login por resultado",
	}, []string{"result"}) // ok|two_factor|invalid|blocked|error

	TwoFactorVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_twofactor_verifications_total",
		Help: "Verificaciones de código 2FA por resultado",
	}, []string{"result"}) // ok|invalid|limited|error

	PasswordReset = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_password_reset_total",
		Help: "Flujo de reset por etapa y resultado",
	}, []string{"stage", "result"}) // stage=request|validate|consume|deliver

	EmailSend = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_send_total",
		Help: "Emails enviados por tipo y resultado (ok o código de diagnóstico SMTP)",
	}, []string{"kind", "result"})

	EmailSendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "email_send_duration_seconds",
		Help:    "Duración del envío SMTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// Register registra las métricas de dominio en reg (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{LoginAttempts, TwoFactorVerifications, PasswordReset, EmailSend, EmailSendDuration} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
