package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		APIAddr            string        `yaml:"api_addr"`
		WebAddr            string        `yaml:"web_addr"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
		// TrustedProxies: peers (IP o CIDR) cuyo X-Forwarded-For se acepta.
		// En el API tier incluye la dirección del web tier.
		TrustedProxies []string `yaml:"trusted_proxies"`
		ReadTimeout        time.Duration `yaml:"read_timeout"`
		WriteTimeout       time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver      string `yaml:"driver"` // postgres | memory
		DSN         string `yaml:"dsn"`
		AutoMigrate bool   `yaml:"auto_migrate"`
		Postgres    struct {
			MaxConns        int32         `yaml:"max_conns"`
			MinConns        int32         `yaml:"min_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL time.Duration `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		// Clave simétrica HS256. Obligatoria: sin ella el proceso no arranca.
		Key          string        `yaml:"key"`
		Issuer       string        `yaml:"issuer"`
		Audience     string        `yaml:"audience"`
		Leeway       time.Duration `yaml:"leeway"`
		TwoFactorTTL time.Duration `yaml:"two_factor_ttl"`
		BridgeTTL    time.Duration `yaml:"bridge_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		DefaultRole string `yaml:"default_role"`
		Reset       struct {
			TTL time.Duration `yaml:"ttl"`
		} `yaml:"reset"`
		TwoFactor struct {
			CodeTTL       time.Duration `yaml:"code_ttl"`
			MaxAttempts   int           `yaml:"max_attempts"`
			AttemptWindow time.Duration `yaml:"attempt_window"`
			EmailDomain   string        `yaml:"email_domain"`
		} `yaml:"two_factor"`
		Guest struct {
			Username  string `yaml:"username"`
			Email     string `yaml:"email"`
			FirstName string `yaml:"first_name"`
		} `yaml:"guest"`
	} `yaml:"auth"`

	Web struct {
		APIBaseURL    string        `yaml:"api_base_url"`
		PublicBaseURL string        `yaml:"public_base_url"`
		APITimeout    time.Duration `yaml:"api_timeout"`
		Session       struct {
			CookieName string        `yaml:"cookie_name"`
			TTL        time.Duration `yaml:"ttl"`
			Secure     bool          `yaml:"secure"`
			SameSite   string        `yaml:"samesite"`
		} `yaml:"session"`
	} `yaml:"web"`

	Rate struct {
		Enabled   bool     `yaml:"enabled"`
		PerSecond int      `yaml:"per_second"`
		PerMinute int      `yaml:"per_minute"`
		Exempt    []string `yaml:"exempt_prefixes"`

		Login struct {
			Limit  int           `yaml:"limit"`
			Window time.Duration `yaml:"window"`
		} `yaml:"login"`

		Forgot struct {
			Limit  int           `yaml:"limit"`
			Window time.Duration `yaml:"window"`
		} `yaml:"forgot"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
		PasswordBlacklistPath string `yaml:"password_blacklist_path"`
		Argon2                struct {
			MemoryKiB   uint32 `yaml:"memory_kib"`
			Time        uint32 `yaml:"time"`
			Parallelism uint8  `yaml:"parallelism"`
			KeyLen      uint32 `yaml:"key_len"`
		} `yaml:"argon2"`
		// Acepta hashes SHA-512 de un solo paso heredados y los re-hashea al loguear.
		AllowLegacyHashes bool `yaml:"allow_legacy_hashes"`
	} `yaml:"security"`
}

var (
	ErrMissingJWTKey = errors.New("config: jwt.key is required (JWT_KEY)")
	ErrMissingDSN    = errors.New("config: storage.dsn is required for the postgres driver")
	ErrMissingSMTP   = errors.New("config: smtp.host and smtp.from are required")
	ErrMissingAPIURL = errors.New("config: web.api_base_url is required")
)

// Load lee el YAML (si path != ""), aplica defaults, overrides de env y valida
// lo común a ambos tiers. Cada main completa con ValidateAPI / ValidateWeb.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	// Normalizar ruta de blacklist (si relativa) respecto al directorio del YAML
	if p := strings.TrimSpace(c.Security.PasswordBlacklistPath); p != "" && path != "" && !filepath.IsAbs(p) {
		c.Security.PasswordBlacklistPath = filepath.Clean(filepath.Join(filepath.Dir(path), p))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.APIAddr == "" {
		c.Server.APIAddr = ":8081"
	}
	if c.Server.WebAddr == "" {
		c.Server.WebAddr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "library:"
	}
	if c.Cache.Memory.DefaultTTL == 0 {
		c.Cache.Memory.DefaultTTL = 10 * time.Minute
	}

	// JWT (valores del despliegue original)
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "LibraryMPT"
	}
	if c.JWT.Audience == "" {
		c.JWT.Audience = "LibraryMPT.Api"
	}
	if c.JWT.Leeway == 0 {
		c.JWT.Leeway = time.Minute
	}
	if c.JWT.TwoFactorTTL == 0 {
		c.JWT.TwoFactorTTL = 10 * time.Minute
	}
	if c.JWT.BridgeTTL == 0 {
		c.JWT.BridgeTTL = 15 * time.Minute
	}

	// Auth flows
	if c.Auth.DefaultRole == "" {
		c.Auth.DefaultRole = "Student"
	}
	if c.Auth.Reset.TTL == 0 {
		c.Auth.Reset.TTL = 24 * time.Hour
	}
	if c.Auth.TwoFactor.CodeTTL == 0 {
		c.Auth.TwoFactor.CodeTTL = 10 * time.Minute
	}
	if c.Auth.TwoFactor.MaxAttempts == 0 {
		c.Auth.TwoFactor.MaxAttempts = 5
	}
	if c.Auth.TwoFactor.AttemptWindow == 0 {
		c.Auth.TwoFactor.AttemptWindow = 10 * time.Minute
	}
	if c.Auth.TwoFactor.EmailDomain == "" {
		c.Auth.TwoFactor.EmailDomain = "@gmail.com"
	}
	if c.Auth.Guest.Username == "" {
		c.Auth.Guest.Username = "guest"
	}
	if c.Auth.Guest.Email == "" {
		c.Auth.Guest.Email = "guest@local"
	}
	if c.Auth.Guest.FirstName == "" {
		c.Auth.Guest.FirstName = "Guest"
	}

	// Web tier
	if c.Web.APIBaseURL == "" {
		c.Web.APIBaseURL = "http://localhost:8081"
	}
	if c.Web.PublicBaseURL == "" {
		c.Web.PublicBaseURL = "http://localhost:8080"
	}
	if c.Web.APITimeout == 0 {
		c.Web.APITimeout = 10 * time.Second
	}
	if c.Web.Session.CookieName == "" {
		c.Web.Session.CookieName = "LibraryMPT.Auth"
	}
	if c.Web.Session.TTL == 0 {
		c.Web.Session.TTL = 8 * time.Hour
	}
	if c.Web.Session.SameSite == "" {
		c.Web.Session.SameSite = "Lax"
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"http://localhost:8080"}
	}
	if c.Server.TrustedProxies == nil {
		c.Server.TrustedProxies = []string{"127.0.0.1", "::1"}
	}

	// Rate limiting
	if c.Rate.PerSecond == 0 {
		c.Rate.PerSecond = 10
	}
	if c.Rate.PerMinute == 0 {
		c.Rate.PerMinute = 60
	}
	if c.Rate.Exempt == nil {
		c.Rate.Exempt = []string{"/css/", "/js/", "/lib/", "/images/", "/books/", "/favicon.ico"}
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == 0 {
		c.Rate.Login.Window = time.Minute
	}
	if c.Rate.Forgot.Limit == 0 {
		c.Rate.Forgot.Limit = 5
	}
	if c.Rate.Forgot.Window == 0 {
		c.Rate.Forgot.Window = 10 * time.Minute
	}

	// SMTP
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}

	// Password policy (mínimo 12, mayúscula, minúscula, dígito)
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 12
		c.Security.PasswordPolicy.RequireUpper = true
		c.Security.PasswordPolicy.RequireLower = true
		c.Security.PasswordPolicy.RequireDigit = true
	}
	if c.Security.Argon2.MemoryKiB == 0 {
		c.Security.Argon2.MemoryKiB = 64 * 1024
	}
	if c.Security.Argon2.Time == 0 {
		c.Security.Argon2.Time = 3
	}
	if c.Security.Argon2.Parallelism == 0 {
		c.Security.Argon2.Parallelism = 1
	}
	if c.Security.Argon2.KeyLen == 0 {
		c.Security.Argon2.KeyLen = 32
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("API_ADDR"); ok {
		c.Server.APIAddr = v
	}
	if v, ok := getEnvStr("WEB_ADDR"); ok {
		c.Server.WebAddr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}

	// CACHE / REDIS
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_KEY"); ok {
		c.JWT.Key = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_AUDIENCE"); ok {
		c.JWT.Audience = v
	}
	if v, ok := getEnvDur("JWT_LEEWAY"); ok {
		c.JWT.Leeway = v
	}

	// AUTH
	if v, ok := getEnvDur("AUTH_RESET_TTL"); ok {
		c.Auth.Reset.TTL = v
	}
	if v, ok := getEnvDur("AUTH_2FA_CODE_TTL"); ok {
		c.Auth.TwoFactor.CodeTTL = v
	}
	if v, ok := getEnvInt("AUTH_2FA_MAX_ATTEMPTS"); ok {
		c.Auth.TwoFactor.MaxAttempts = v
	}
	if v, ok := getEnvDur("AUTH_2FA_ATTEMPT_WINDOW"); ok {
		c.Auth.TwoFactor.AttemptWindow = v
	}
	if v, ok := getEnvStr("AUTH_2FA_EMAIL_DOMAIN"); ok {
		c.Auth.TwoFactor.EmailDomain = v
	}

	// WEB
	if v, ok := getEnvStr("WEB_API_BASE_URL"); ok {
		c.Web.APIBaseURL = v
	}
	if v, ok := getEnvStr("WEB_PUBLIC_BASE_URL"); ok {
		c.Web.PublicBaseURL = v
	}
	if v, ok := getEnvStr("WEB_SESSION_COOKIE"); ok {
		c.Web.Session.CookieName = v
	}
	if v, ok := getEnvDur("WEB_SESSION_TTL"); ok {
		c.Web.Session.TTL = v
	}
	if v, ok := getEnvBool("WEB_SESSION_SECURE"); ok {
		c.Web.Session.Secure = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_PER_SECOND"); ok {
		c.Rate.PerSecond = v
	}
	if v, ok := getEnvInt("RATE_PER_MINUTE"); ok {
		c.Rate.PerMinute = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvDur("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}
	if v, ok := getEnvInt("RATE_FORGOT_LIMIT"); ok {
		c.Rate.Forgot.Limit = v
	}
	if v, ok := getEnvDur("RATE_FORGOT_WINDOW"); ok {
		c.Rate.Forgot.Window = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// SECURITY
	if v, ok := getEnvInt("SECURITY_PASSWORD_POLICY_MIN_LENGTH"); ok {
		c.Security.PasswordPolicy.MinLength = v
	}
	if v, ok := getEnvBool("SECURITY_PASSWORD_POLICY_REQUIRE_SYMBOL"); ok {
		c.Security.PasswordPolicy.RequireSymbol = v
	}
	if v, ok := getEnvStr("SECURITY_PASSWORD_BLACKLIST_PATH"); ok {
		c.Security.PasswordBlacklistPath = v
	}
	if v, ok := getEnvBool("SECURITY_ALLOW_LEGACY_HASHES"); ok {
		c.Security.AllowLegacyHashes = v
	}

	// Salvaguarda prod: nunca saltear verificación TLS del SMTP.
	if strings.EqualFold(c.App.Env, "prod") {
		c.SMTP.InsecureSkipVerify = false
	}
}

// Validate chequea lo que ambos tiers necesitan para arrancar.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Key) == "" {
		return ErrMissingJWTKey
	}
	if strings.EqualFold(c.App.Env, "prod") && len(c.JWT.Key) < 32 {
		return fmt.Errorf("config: jwt.key must be at least 32 bytes in prod")
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache.kind %q", c.Cache.Kind)
	}
	if c.Cache.Kind == "redis" && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return fmt.Errorf("config: cache.redis.addr is required when cache.kind=redis")
	}
	if c.Auth.TwoFactor.MaxAttempts < 0 {
		return fmt.Errorf("config: auth.two_factor.max_attempts must be >= 0")
	}
	return nil
}

// ValidateAPI agrega los requisitos del API tier (credential store).
func (c *Config) ValidateAPI() error {
	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return ErrMissingDSN
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

// ValidateWeb agrega los requisitos del web tier (entrega por email y API upstream).
func (c *Config) ValidateWeb() error {
	if strings.TrimSpace(c.SMTP.Host) == "" || strings.TrimSpace(c.SMTP.From) == "" {
		return ErrMissingSMTP
	}
	if strings.TrimSpace(c.Web.APIBaseURL) == "" {
		return ErrMissingAPIURL
	}
	return nil
}

// ResolvePath elige el YAML: flag, $CONFIG_PATH o configs/config.yaml si existe.
// "" significa solo env.
func ResolvePath(flagPath string) string {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	if st, err := os.Stat("configs/config.yaml"); err == nil && !st.IsDir() {
		return "configs/config.yaml"
	}
	return ""
}
