package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"
	"strconv"
)

// Rango de los códigos 2FA: siempre 6 dígitos, sin ceros a la izquierda.
const (
	CodeMin = 100000
	CodeMax = 999999
)

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding (para guardar en DB).
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateNumericCode devuelve un código uniforme en [CodeMin, CodeMax] usando crypto/rand.
func GenerateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(CodeMax-CodeMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+CodeMin, 10), nil
}

// CodeGenerator permite fijar el código en tests.
type CodeGenerator interface {
	NewCode() (string, error)
}

type CryptoCodes struct{}

func (CryptoCodes) NewCode() (string, error) { return GenerateNumericCode() }
