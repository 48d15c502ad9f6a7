// Command seed crea usuarios de prueba (admin, librarian, student con 2FA) en el credential store.
// Es idempotente: si el username existe se saltea.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kateeridumb/Library/internal/app"
	"github.com/kateeridumb/Library/internal/bootstrap"
	"github.com/kateeridumb/Library/internal/config"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/store/core"
)

// ---------- helpers env ----------
func strEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func boolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	default:
		return def
	}
}

func main() {
	configPath := flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
	flag.Parse()

	_ = godotenv.Load(".env")     // base
	_ = godotenv.Load(".env.dev") // dev overrides

	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Storage.Driver == "memory" {
		log.Fatal("seed requiere storage.driver=postgres")
	}

	logger.Init(app.LoggerConfig(cfg, "library-seed", ""))
	ctx := logger.ToContext(context.Background(), logger.L())

	repo, _, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer repo.Close()

	hasher := app.NewHasher(cfg)
	users := []bootstrap.UserSpec{
		{
			Username: strEnv("SEED_ADMIN_USERNAME", "admin"), Email: strEnv("SEED_ADMIN_EMAIL", "admin@library.test"),
			FirstName: "Admin", LastName: "Library", Password: strEnv("SEED_ADMIN_PASSWORD", "SuperS3creta!Admin"),
			Role: core.RoleAdmin,
		},
		{
			Username: strEnv("SEED_LIBRARIAN_USERNAME", "librarian"), Email: strEnv("SEED_LIBRARIAN_EMAIL", "librarian@library.test"),
			FirstName: "Maria", LastName: "Ivanova", Password: strEnv("SEED_LIBRARIAN_PASSWORD", "Librarian.12345"),
			Role: core.RoleLibrarian,
		},
		{
			Username: strEnv("SEED_STUDENT_USERNAME", "student"), Email: strEnv("SEED_STUDENT_EMAIL", "student@gmail.com"),
			FirstName: "Ivan", LastName: "Petrov", Password: strEnv("SEED_STUDENT_PASSWORD", "CorrectHorse1Battery"),
			Role: core.RoleStudent, TwoFactor: boolEnv("SEED_STUDENT_2FA", true),
		},
	}

	for _, su := range users {
		created, err := bootstrap.EnsureUser(ctx, repo, hasher, su, cfg.Auth.Guest.Username)
		if err != nil {
			log.Fatalf("seed %s: %v", su.Username, err)
		}
		if created {
			log.Printf("seed: creado %s (%s, 2fa=%t)", su.Username, su.Role, su.TwoFactor)
		} else {
			log.Printf("seed: %s ya existe, sin cambios", su.Username)
		}
	}
}
