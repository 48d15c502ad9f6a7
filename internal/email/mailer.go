package email

import (
	"context"
	"fmt"
	"time"

	"github.com/kateeridumb/Library/internal/metrics"
	"github.com/kateeridumb/Library/internal/observability/logger"
)

// Mailer arma los emails de auth y los despacha por un Sender.
type Mailer struct {
	Sender    Sender
	Templates *Templates
}

func NewMailer(s Sender) (*Mailer, error) {
	t, err := LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("email templates: %w", err)
	}
	return &Mailer{Sender: s, Templates: t}, nil
}

func (m *Mailer) SendTwoFactorCode(ctx context.Context, to, firstName, code string, ttl time.Duration) error {
	vars := TwoFactorVars{FirstName: firstName, Code: code, TTL: humanTTL(ttl)}
	return m.send(ctx, TemplateTwoFactor, to, "LibraryMPT sign-in code", vars)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, link string, ttl time.Duration) error {
	vars := ResetVars{UserEmail: to, Link: link, TTL: humanTTL(ttl)}
	return m.send(ctx, TemplateReset, to, "LibraryMPT password reset", vars)
}

func (m *Mailer) send(ctx context.Context, kind, to, subject string, vars any) error {
	html, text, err := m.Templates.Render(kind, vars)
	if err != nil {
		logger.From(ctx).Error("email render failed", logger.Component("email"), logger.String("kind", kind), logger.Err(err))
		metrics.EmailSend.WithLabelValues(kind, "render").Inc()
		return err
	}

	start := time.Now()
	err = m.Sender.Send(ctx, to, subject, html, text)
	metrics.EmailSendDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EmailSend.WithLabelValues(kind, DiagnoseSMTP(err).Code).Inc()
		return err
	}
	metrics.EmailSend.WithLabelValues(kind, "ok").Inc()
	return nil
}

func humanTTL(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
