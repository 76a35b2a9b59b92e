// Package jwt emite y verifica los access tokens (EdDSA) y los tokens de
// recuperación de contraseña.
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessAudience = "pisci-app"
	ResetAudience  = "pisci-reset"

	typAccess = "JWT"
	typReset  = "reset+jwt"

	leeway = 30 * time.Second
)

var (
	ErrTokenExpired = errors.New("jwt: token expired")
	ErrTokenInvalid = errors.New("jwt: token invalid")
)

// AccessClaims viajan en el bearer de cada request protegido.
type AccessClaims struct {
	Role      string `json:"rol"`
	Email     string `json:"correo,omitempty"`
	SessionID string `json:"sid"`
	jwtv5.RegisteredClaims
}

// ResetClaims ligan el token de recuperación al usuario y al hash de contraseña vigente.
type ResetClaims struct {
	Fingerprint string `json:"pwf"`
	jwtv5.RegisteredClaims
}

// Issuer firma tokens con la clave activa del KeySet.
type Issuer struct {
	Iss       string
	Keys      *KeySet
	AccessTTL time.Duration

	now func() time.Time
}

func NewIssuer(iss string, ks *KeySet, accessTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Issuer{Iss: iss, Keys: ks, AccessTTL: accessTTL, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *Issuer) clock() time.Time {
	if i.now == nil {
		return time.Now()
	}
	return i.now()
}

func (i *Issuer) sign(claims jwtv5.Claims, typ string) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.Keys.KID
	tk.Header["typ"] = typ
	return tk.SignedString(i.Keys.Priv)
}

// IssueAccess emite el bearer que referencia la sesión sid.
func (i *Issuer) IssueAccess(userID, email, role, sid string) (string, time.Time, error) {
	now := i.clock().UTC()
	exp := now.Add(i.AccessTTL)
	claims := AccessClaims{
		Role:      role,
		Email:     email,
		SessionID: sid,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   userID,
			Audience:  jwtv5.ClaimStrings{AccessAudience},
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := i.sign(claims, typAccess)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueReset emite el token del link de recuperación.
func (i *Issuer) IssueReset(userID, fingerprint string, ttl time.Duration) (string, error) {
	now := i.clock().UTC()
	return i.sign(ResetClaims{
		Fingerprint: fingerprint,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   userID,
			Audience:  jwtv5.ClaimStrings{ResetAudience},
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}, typReset)
}
