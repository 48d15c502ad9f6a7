// Command migrate aplica las migraciones goose embebidas del credential store.
//
//	migrate [-dsn DSN] [up|down|status]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kateeridumb/Library/internal/config"
	"github.com/kateeridumb/Library/internal/store/pg"
)

func resolveDSN(flagDSN, configPath string) string {
	if s := strings.TrimSpace(flagDSN); s != "" {
		return s
	}
	if s := strings.TrimSpace(os.Getenv("STORAGE_DSN")); s != "" {
		return s
	}
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	return cfg.Storage.DSN
}

func main() {
	var (
		configPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
		dsnFlag    = flag.String("dsn", "", "DSN de Postgres (fallback: $STORAGE_DSN o storage.dsn)")
		envFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()
	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	}

	action := "up"
	if args := flag.Args(); len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}

	dsn := resolveDSN(*dsnFlag, *configPath)
	if dsn == "" {
		log.Fatal("missing DSN: use -dsn, STORAGE_DSN or storage.dsn")
	}

	ctx := context.Background()
	var err error
	switch action {
	case "up":
		err = pg.Migrate(ctx, dsn)
	case "down":
		err = pg.Rollback(ctx, dsn)
	case "status":
		err = pg.MigrationStatus(ctx, dsn)
	default:
		log.Fatalf("unknown action %q (up|down|status)", action)
	}
	if err != nil {
		log.Fatalf("%s: %v", action, err)
	}
	log.Printf("migrate %s: ok", action)
}
