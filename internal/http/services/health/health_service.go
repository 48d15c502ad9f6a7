// Package health contiene el service para health checks de ambos tiers.
package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/kateeridumb/Library/internal/http/dto/health"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Signer *jwtx.Signer
	// DBCheck es crítico: sin store no hay login.
	DBCheck func(ctx context.Context) error
	// CacheCheck (Redis o API upstream en el web tier) degrada pero no tumba.
	CacheCheck func(ctx context.Context) error
	CacheName  string
	Version    string
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.CacheName == "" {
		deps.CacheName = "cache"
	}
	return &healthService{deps: deps}
}

// Services agrupa todos los services del dominio health.
type Services struct {
	Health HealthService
}

// NewServices crea el agregador de services health.
func NewServices(d Deps) Services {
	return Services{Health: NewHealthService(d)}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("health"),
		logger.Op("Check"),
	)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	response := dto.HealthResponse{
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
	}
	hasErrors, hasCriticalErrors := false, false

	// 1) Signer (crítico): firma y valida un token de prueba.
	if s.deps.Signer != nil {
		if err := s.checkSigner(); err != nil {
			response.Components["signer"] = dto.HealthStatus{Status: "error", Message: err.Error()}
			hasCriticalErrors = true
			log.Error("signer check failed", logger.Err(err))
		} else {
			response.Components["signer"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["signer"] = dto.HealthStatus{Status: "disabled"}
	}

	// 2) DB (crítico)
	if s.deps.DBCheck != nil {
		if err := s.deps.DBCheck(ctx); err != nil {
			response.Components["db"] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			hasCriticalErrors = true
			log.Error("db unavailable", logger.Err(err))
		} else {
			response.Components["db"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["db"] = dto.HealthStatus{Status: "disabled"}
	}

	// 3) Cache (no crítico)
	if s.deps.CacheCheck != nil {
		if err := s.deps.CacheCheck(ctx); err != nil {
			response.Components[s.deps.CacheName] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			hasErrors = true
			log.Warn("cache unavailable", logger.String("component", s.deps.CacheName), logger.Err(err))
		} else {
			response.Components[s.deps.CacheName] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components[s.deps.CacheName] = dto.HealthStatus{Status: "disabled"}
	}

	switch {
	case hasCriticalErrors:
		response.Status = "unavailable"
	case hasErrors:
		response.Status = "degraded"
	default:
		response.Status = "ready"
	}
	return response
}

func (s *healthService) checkSigner() error {
	tok, err := s.deps.Signer.IssueBridge(jwtx.Identity{UserID: 1, Username: "selfcheck", Role: "health"})
	if err != nil {
		return fmt.Errorf("sign failed: %w", err)
	}
	if _, err := s.deps.Signer.Validate(tok, jwtx.PurposeBridge); err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}
	return nil
}
