package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// KeySet mantiene la clave Ed25519 activa. El KID se deriva de la pública.
type KeySet struct {
	Priv ed25519.PrivateKey
	Pub  ed25519.PublicKey
	KID  string
}

// NewKeySetFromSeed construye el KeySet desde una semilla de 32 bytes.
func NewKeySetFromSeed(seed []byte) (*KeySet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("jwt: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &KeySet{Priv: priv, Pub: pub, KID: kidFor(pub)}, nil
}

// ParseSeed decodifica una semilla en base64 estándar o url, con o sin padding.
func ParseSeed(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("jwt: empty signing key")
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("jwt: signing key is not valid base64")
}

// LoadKeySet usa la semilla configurada o, si está vacía, genera una efímera.
func LoadKeySet(seedB64 string) (ks *KeySet, ephemeral bool, err error) {
	if strings.TrimSpace(seedB64) == "" {
		ks, err = NewDevEd25519()
		return ks, true, err
	}
	seed, err := ParseSeed(seedB64)
	if err != nil {
		return nil, false, err
	}
	ks, err = NewKeySetFromSeed(seed)
	return ks, false, err
}

// NewDevEd25519 genera una clave efímera; los tokens mueren con el proceso.
func NewDevEd25519() (*KeySet, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return NewKeySetFromSeed(seed)
}

// GenerateSeed retorna una semilla nueva en base64 estándar (para `pisci keygen`).
func GenerateSeed() (string, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(seed), nil
}

func kidFor(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:])[:16]
}

type jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	X   string `json:"x"`
}

// JWKSJSON devuelve el JWKS público.
func (k *KeySet) JWKSJSON() []byte {
	b, _ := json.Marshal(struct {
		Keys []jwk `json:"keys"`
	}{Keys: []jwk{{
		Kty: "OKP",
		Crv: "Ed25519",
		Kid: k.KID,
		Alg: "EdDSA",
		Use: "sig",
		X:   base64.RawURLEncoding.EncodeToString(k.Pub),
	}}})
	return b
}
