// Package password implementa el hashing de credenciales (Argon2id con sal de
// 32 bytes en columna separada) y la política de contraseñas.
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// SaltSize es el tamaño de la sal en bytes (se guarda en base64 estándar).
const SaltSize = 32

var ErrEmptyPassword = errors.New("password: empty password")

type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

// Hasher es inmutable y seguro para uso concurrente.
type Hasher struct {
	params Params
	legacy bool
}

// NewHasher crea un Hasher. allowLegacy habilita la verificación de registros
// SHA-512 de un solo paso: base64(SHA512(password || saltBase64)).
func NewHasher(p Params, allowLegacy bool) *Hasher {
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 || p.KeyLen == 0 {
		p = Default
	}
	return &Hasher{params: p, legacy: allowLegacy}
}

// GenerateSalt devuelve 32 bytes aleatorios en base64 estándar.
func GenerateSalt() (string, error) {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// HashPassword calcula el digest Argon2id de password con la sal dada.
// Formato: $argon2id$v=19$m=<m>,t=<t>,p=<p>$<digestB64>
func (h *Hasher) HashPassword(plain, salt string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	raw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil || len(raw) == 0 {
		return "", fmt.Errorf("password: invalid salt")
	}
	p := h.params
	dk := argon2.IDKey([]byte(plain), raw, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return encode(p, dk), nil
}

// CreateCredential genera sal nueva y hashea. Usado en registro, seed,
// bootstrap de guest y reset de password.
func (h *Hasher) CreateCredential(plain string) (hash, salt string, err error) {
	salt, err = GenerateSalt()
	if err != nil {
		return "", "", err
	}
	hash, err = h.HashPassword(plain, salt)
	if err != nil {
		return "", "", err
	}
	return hash, salt, nil
}

// Verify recalcula el digest y compara en tiempo constante.
func (h *Hasher) Verify(plain, storedHash, storedSalt string) bool {
	if plain == "" || storedHash == "" || storedSalt == "" {
		return false
	}
	if !strings.HasPrefix(storedHash, "$argon2id$") {
		if !h.legacy {
			return false
		}
		return verifyLegacy(plain, storedHash, storedSalt)
	}

	p, dkStored, ok := decode(storedHash)
	if !ok {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false
	}
	dk := argon2.IDKey([]byte(plain), raw, p.Time, p.Memory, p.Parallelism, uint32(len(dkStored)))
	return subtle.ConstantTimeCompare(dk, dkStored) == 1
}

// NeedsRehash indica si el hash es legacy o usa parámetros distintos a los actuales.
func (h *Hasher) NeedsRehash(storedHash string) bool {
	p, dk, ok := decode(storedHash)
	if !ok {
		return true
	}
	return p.Memory != h.params.Memory || p.Time != h.params.Time ||
		p.Parallelism != h.params.Parallelism || uint32(len(dk)) != h.params.KeyLen
}

func verifyLegacy(plain, storedHash, storedSalt string) bool {
	sum := sha512.Sum512([]byte(plain + storedSalt))
	want, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(sum[:], want) == 1
}

func encode(p Params, dk []byte) string {
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s",
		p.Memory, p.Time, p.Parallelism, base64.RawStdEncoding.EncodeToString(dk))
}

func decode(s string) (Params, []byte, bool) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", "<dk>"
	parts := strings.Split(s, "$")
	if len(parts) != 5 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return Params{}, nil, false
	}
	var m, t uint32
	var par uint8
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &par); err != nil || n != 3 {
		return Params{}, nil, false
	}
	dk, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(dk) == 0 {
		return Params{}, nil, false
	}
	return Params{Memory: m, Time: t, Parallelism: par, KeyLen: uint32(len(dk))}, dk, true
}
