package session

import (
	"strings"

	tokens "github.com/pisciapp/backend/internal/security/token"
)

const (
	secretBytes   = 32
	maxCredential = 256
)

// Credential es el refresh token que ve el cliente: "<sessionID>.<secret>".
// El sessionID permite buscar la fila por clave primaria; el secreto solo se
// guarda hasheado.
type Credential struct {
	SessionID string
	Secret    string
}

func (c Credential) String() string { return c.SessionID + "." + c.Secret }

func newSecret() (string, error) { return tokens.GenerateOpaqueToken(secretBytes) }

// ParseCredential separa sid y secreto. Cualquier forma inválida es ErrInvalidRotationCredential.
func ParseCredential(raw string) (Credential, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxCredential {
		return Credential{}, ErrInvalidRotationCredential
	}
	sid, secret, ok := strings.Cut(raw, ".")
	if !ok || sid == "" || secret == "" || strings.Contains(secret, ".") {
		return Credential{}, ErrInvalidRotationCredential
	}
	return Credential{SessionID: sid, Secret: secret}, nil
}
