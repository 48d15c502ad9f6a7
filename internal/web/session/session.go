// Package session implementa la sesión por cookie del web tier.
//
// La cookie solo lleva un ID opaco; el estado vive en cache.Client bajo
// "sess:"+sha256(id), así varias instancias web comparten sesiones vía Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kateeridumb/Library/internal/cache"
	httperrors "github.com/kateeridumb/Library/internal/http/errors"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/observability/logger"
	tokens "github.com/kateeridumb/Library/internal/security/token"
)

const (
	keyPrefix = "sess:"
	idBytes   = 32
)

var ErrNoSession = errors.New("session: not found")

// Identity es el usuario autenticado en la sesión.
type Identity struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
}

// Pending es un login a medias esperando el código 2FA.
type Pending struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}

type Session struct {
	ID        string    `json:"-"`
	Identity  *Identity `json:"identity,omitempty"`
	Pending   *Pending  `json:"pending,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Authenticated reporta si hay identidad establecida (no cuenta un 2FA pendiente).
func (s *Session) Authenticated() bool {
	return s != nil && s.Identity != nil && s.Identity.UserID != 0
}

type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	SameSite   http.SameSite
}

// Manager carga, guarda y rota sesiones.
type Manager struct {
	store cache.Client
	cfg   Config
	now   func() time.Time
}

func NewManager(store cache.Client, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "LibraryMPT.Auth"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 8 * time.Hour
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	return &Manager{store: store, cfg: cfg, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// ParseSameSite convierte el valor de config ("Lax", "Strict", "None").
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func storeKey(id string) string { return keyPrefix + tokens.SHA256Base64URL(id) }

// Load lee la sesión de la cookie. ErrNoSession si no hay cookie o expiró.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	raw, err := m.store.Get(ctx, storeKey(c.Value))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	if !s.ExpiresAt.IsZero() && m.now().After(s.ExpiresAt) {
		_ = m.store.Delete(ctx, storeKey(c.Value))
		return nil, ErrNoSession
	}
	s.ID = c.Value
	return &s, nil
}

// Save persiste la sesión extendiendo la expiración (sliding) y reemite la cookie.
// Una sesión sin ID recibe uno nuevo.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	now := m.now()
	if s.ID == "" {
		id, err := tokens.GenerateOpaqueToken(idBytes)
		if err != nil {
			return fmt.Errorf("session: id: %w", err)
		}
		s.ID = id
		s.CreatedAt = now.UTC()
	}
	s.ExpiresAt = now.Add(m.cfg.TTL).UTC()

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := m.store.Set(ctx, storeKey(s.ID), string(b), m.cfg.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	http.SetCookie(w, m.cookie(s.ID, s.ExpiresAt))
	return nil
}

// Rotate emite un ID nuevo conservando el contenido. Se llama en cada cambio
// de privilegio (login, 2FA, guest) para evitar fijación de sesión.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.ID != "" {
		if err := m.store.Delete(ctx, storeKey(s.ID)); err != nil && !cache.IsNotFound(err) {
			logger.From(ctx).Warn("session delete failed", logger.Component("session"), logger.Err(err))
		}
		s.ID = ""
	}
	return m.Save(ctx, w, s)
}

// Destroy borra la sesión y expira la cookie. Nil-safe.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	http.SetCookie(w, m.cookie("", time.Unix(0, 0)))
	if s == nil || s.ID == "" {
		return nil
	}
	err := m.store.Delete(ctx, storeKey(s.ID))
	s.ID, s.Identity, s.Pending = "", nil, nil
	if err != nil && !cache.IsNotFound(err) {
		return fmt.Errorf("session: destroy: %w", err)
	}
	return nil
}

func (m *Manager) cookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: m.cfg.SameSite,
		Expires:  expires,
	}
	if value == "" {
		c.MaxAge = -1
	}
	return c
}

// Middleware carga la sesión (si existe) en el contexto y refresca su expiración.
// Siempre deja una *Session en el contexto: vacía si no había cookie válida.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			s, err := m.Load(ctx, r)
			switch {
			case err == nil:
				if err := m.Save(ctx, w, s); err != nil {
					logger.From(ctx).Warn("session refresh failed", logger.Component("session"), logger.Err(err))
				}
				if s.Authenticated() {
					ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(s.Identity.UserID)))
				}
			case errors.Is(err, ErrNoSession):
				s = &Session{}
			default:
				logger.From(ctx).Error("session load failed", logger.Component("session"), logger.Err(err))
				s = &Session{}
			}
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, s)))
		})
	}
}

// RequireAuthenticated responde 401 si la sesión no tiene identidad. Va después de Middleware.
func RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).Authenticated() {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext devuelve la sesión del request o nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// BridgeIdentity adapta la sesión del contexto al formato del bridge.
func BridgeIdentity(ctx context.Context) (jwtx.Identity, bool) {
	s := FromContext(ctx)
	if !s.Authenticated() {
		return jwtx.Identity{}, false
	}
	return jwtx.Identity{UserID: s.Identity.UserID, Username: s.Identity.Username, Role: s.Identity.Role}, true
}
