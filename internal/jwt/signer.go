package jwt

import (
	"errors"
	"strconv"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Propósitos de token. Un token emitido para un propósito nunca valida para otro;
// los tokens bridge no llevan propósito.
const (
	PurposeTwoFactor = "2fa"
	PurposeBridge    = ""
)

const (
	DefaultTwoFactorTTL = 10 * time.Minute
	DefaultBridgeTTL    = 15 * time.Minute
)

var (
	// ErrInvalidToken cubre firma, expiración, issuer, audience, propósito y formato.
	// El llamador no distingue causas.
	ErrInvalidToken = errors.New("invalid_token")
	ErrMissingKey   = errors.New("jwt: signing key is required")
)

type Config struct {
	Key          string
	Issuer       string
	Audience     string
	Leeway       time.Duration
	TwoFactorTTL time.Duration
	BridgeTTL    time.Duration
}

// Claims es la identidad que viaja en el token.
type Claims struct {
	UserID   int64
	Username string
	Roles    []string
	Purpose  string
}

// Identity es lo mínimo que la capa web conoce del usuario autenticado.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

// Role devuelve el primer rol o "".
func (c Claims) Role() string {
	if len(c.Roles) == 0 {
		return ""
	}
	return c.Roles[0]
}

type wireClaims struct {
	Name    string   `json:"name,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Purpose string   `json:"purpose,omitempty"`
	jwtv5.RegisteredClaims
}

// Signer firma y valida tokens HS256 con una clave simétrica compartida.
type Signer struct {
	key   []byte
	iss   string
	aud   string
	lee   time.Duration
	ttl2f time.Duration
	ttlBr time.Duration
	now   func() time.Time
}

func NewSigner(cfg Config) (*Signer, error) {
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, ErrMissingKey
	}
	s := &Signer{
		key:   []byte(cfg.Key),
		iss:   cfg.Issuer,
		aud:   cfg.Audience,
		lee:   cfg.Leeway,
		ttl2f: cfg.TwoFactorTTL,
		ttlBr: cfg.BridgeTTL,
		now:   time.Now,
	}
	if s.ttl2f <= 0 {
		s.ttl2f = DefaultTwoFactorTTL
	}
	if s.ttlBr <= 0 {
		s.ttlBr = DefaultBridgeTTL
	}
	return s, nil
}

// WithClock reemplaza el reloj (tests).
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// Issue firma c con expiración now+ttl.
func (s *Signer) Issue(c Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 || c.UserID <= 0 {
		return "", errors.New("jwt: user id and ttl are required")
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	wc := wireClaims{
		Name:    c.Username,
		Roles:   c.Roles,
		Purpose: c.Purpose,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    s.iss,
			Subject:   strconv.FormatInt(c.UserID, 10),
			Audience:  jwtv5.ClaimStrings{s.aud},
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, wc)
	tk.Header["typ"] = "JWT"
	return tk.SignedString(s.key)
}

// IssueTwoFactor emite el token de desafío 2FA.
func (s *Signer) IssueTwoFactor(userID int64, username, role string) (string, error) {
	return s.Issue(Claims{UserID: userID, Username: username, Roles: roleList(role), Purpose: PurposeTwoFactor}, s.ttl2f)
}

// IssueBridge emite el token que la capa web adjunta a cada llamada a la API.
func (s *Signer) IssueBridge(id Identity) (string, error) {
	return s.Issue(Claims{UserID: id.UserID, Username: id.Username, Roles: roleList(id.Role)}, s.ttlBr)
}

// TwoFactorTTL es la vida del token de desafío (también tope del código).
func (s *Signer) TwoFactorTTL() time.Duration { return s.ttl2f }

func roleList(role string) []string {
	if role == "" {
		return nil
	}
	return []string{role}
}

// Validate verifica firma, iss, aud, exp (con leeway) y que el propósito coincida exacto.
func (s *Signer) Validate(token, purpose string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	var wc wireClaims
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithLeeway(s.lee),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(s.now),
	}
	if s.iss != "" {
		opts = append(opts, jwtv5.WithIssuer(s.iss))
	}
	if s.aud != "" {
		opts = append(opts, jwtv5.WithAudience(s.aud))
	}
	tok, err := jwtv5.ParseWithClaims(token, &wc, func(*jwtv5.Token) (any, error) {
		return s.key, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if wc.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	uid, err := strconv.ParseInt(wc.Subject, 10, 64)
	if err != nil || uid <= 0 {
		return nil, ErrInvalidToken
	}
	return &Claims{UserID: uid, Username: wc.Name, Roles: wc.Roles, Purpose: wc.Purpose}, nil
}
