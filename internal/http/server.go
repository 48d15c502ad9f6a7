package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kateeridumb/Library/internal/observability/logger"
)

// ServerConfig agrupa los timeouts del http.Server de cada tier.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Start sirve handler hasta que ctx se cancele y luego hace shutdown ordenado.
func Start(ctx context.Context, cfg ServerConfig, handler http.Handler) error {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", logger.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.L().Info("http server shutting down", logger.String("addr", cfg.Addr))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
