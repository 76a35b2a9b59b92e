// Package password hashea secretos con argon2id y valida la política de contraseñas.
//
// Se usa tanto para contraseñas de usuario como para el secreto de los refresh
// tokens: en ambos casos solo el PHC string llega a la base.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrEmpty     = errors.New("password: empty secret")
	ErrMalformed = errors.New("password: malformed hash")
)

type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
	SaltLen     uint32
}

// Default sigue la recomendación OWASP para argon2id (m=64MiB, t=3, p=1).
var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32, SaltLen: 16}

// Fast es solo para tests.
var Fast = Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32, SaltLen: 16}

// Hasher aplica Params fijos. El valor cero usa Default.
type Hasher struct {
	Params Params
}

func NewHasher(p Params) *Hasher {
	if p.KeyLen == 0 {
		p.KeyLen = Default.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = Default.SaltLen
	}
	return &Hasher{Params: p}
}

func (h *Hasher) params() Params {
	if h == nil || h.Params.Memory == 0 {
		return Default
	}
	return h.Params
}

// Hash devuelve $argon2id$v=19$m=..,t=..,p=..$<salt>$<key>.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	p := h.params()
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compara en tiempo constante usando los parámetros embebidos en phc,
// de modo que un cambio de Params no invalida hashes previos.
func (h *Hasher) Verify(plain, phc string) bool {
	ok, _ := verify(plain, phc)
	return ok
}

func verify(plain, phc string) (bool, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformed
	}
	var v int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &v); err != nil || v != argon2.Version {
		return false, ErrMalformed
	}
	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil || m == 0 || t == 0 || p == 0 {
		return false, ErrMalformed
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformed
	}
	stored, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(stored) == 0 {
		return false, ErrMalformed
	}
	key := argon2.IDKey([]byte(plain), salt, t, m, p, uint32(len(stored)))
	return subtle.ConstantTimeCompare(key, stored) == 1, nil
}

// Hash y Verify con Default, para callers sin Hasher propio.
func Hash(plain string) (string, error) { return (*Hasher)(nil).Hash(plain) }
func Verify(plain, phc string) bool { return (*Hasher)(nil).Verify(plain, phc) }
