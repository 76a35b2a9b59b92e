// Package tokens genera valores aleatorios y digests para credenciales opacas.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

// GenerateOpaqueToken genera nBytes aleatorios en base64url sin padding.
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("tokens: random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NumericCode genera un código decimal de n dígitos sin cero inicial
// (para n=6 el rango es 100000–999999).
func NumericCode(n int) (string, error) {
	if n <= 0 || n > 18 {
		return "", fmt.Errorf("tokens: invalid code length %d", n)
	}
	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(lo, big.NewInt(10)), lo)
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("tokens: random: %w", err)
	}
	return v.Add(v, lo).String(), nil
}

// SHA256Base64URL devuelve sha256(s) en base64url sin padding.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// EqualTrimmed compara dos códigos ignorando espacios alrededor, en tiempo constante.
func EqualTrimmed(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
