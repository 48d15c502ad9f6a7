// Command web sirve el web tier: sesiones por cookie, 2FA por email y bridge al API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kateeridumb/Library/internal/app"
	"github.com/kateeridumb/Library/internal/config"
	chttp "github.com/kateeridumb/Library/internal/http"
	"github.com/kateeridumb/Library/internal/observability/logger"
)

var version = "dev"

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()

	if *flagEnvFile != "" {
		if err := godotenv.Load(*flagEnvFile); err == nil {
			log.Printf("dotenv: cargado %s", *flagEnvFile)
		}
	}

	cfg, err := config.Load(config.ResolvePath(*flagConfigPath))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(app.LoggerConfig(cfg, "library-web", version))
	defer func() { _ = logger.Sync() }()
	l := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ToContext(ctx, l)

	w, err := app.BuildWeb(ctx, cfg, version, nil)
	if err != nil {
		l.Fatal("web bootstrap failed", logger.Err(err))
	}
	defer w.Close()

	err = chttp.Start(ctx, chttp.ServerConfig{
		Addr:         cfg.Server.WebAddr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, w.Handler)
	if err != nil {
		l.Error("http server", logger.Err(err))
		os.Exit(1)
	}
}
