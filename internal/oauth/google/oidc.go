// Package google verifica ID tokens de Google Sign-In (RS256 contra el JWKS
// publicado por Google).
package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	jwksMaxAge     = time.Hour
	// mínimo entre refrescos forzados por kid desconocido
	jwksMinRefresh = 30 * time.Second
)

var (
	ErrInvalidIDToken   = errors.New("google: invalid id token")
	ErrEmailNotVerified = errors.New("google: email not verified")
)

var validIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}
type jwks struct {
	Keys []jwk `json:"keys"`
}

// Verifier valida ID tokens emitidos para ClientID.
type Verifier struct {
	ClientID string
	JWKSURL  string

	http *http.Client
	now  func() time.Time
	sf   singleflight.Group

	mu       sync.RWMutex
	keys     map[string]*rsa.PublicKey
	keysAt   time.Time
	jwksETag string
}

func New(clientID string) *Verifier {
	return &Verifier{
		ClientID: clientID,
		JWKSURL:  DefaultJWKSURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// IDClaims son los datos de la cuenta Google que usa el login federado.
type IDClaims struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"` // bool o "true"
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwtv5.RegisteredClaims
}

// VerifyIDToken valida firma, iss, aud y exp. Un correo no verificado por
// Google es ErrEmailNotVerified.
func (v *Verifier) VerifyIDToken(ctx context.Context, idToken string) (*IDClaims, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, ErrInvalidIDToken
	}

	var claims idTokenClaims
	_, err := jwtv5.ParseWithClaims(idToken, &claims,
		func(t *jwtv5.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return v.keyFor(ctx, kid)
		},
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithAudience(v.ClientID),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuedAt(),
		jwtv5.WithLeeway(30*time.Second),
		jwtv5.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	if !validIssuer(claims.Issuer) {
		return nil, fmt.Errorf("%w: bad iss %q", ErrInvalidIDToken, claims.Issuer)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing sub/email", ErrInvalidIDToken)
	}

	out := &IDClaims{
		Sub:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: truthy(claims.EmailVerified),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}
	if !out.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return out, nil
}

func validIssuer(iss string) bool {
	for _, s := range validIssuers {
		if iss == s {
			return true
		}
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	}
	return false
}

// keyFor busca kid en el cache; si no está (rotación de claves de Google)
// refresca el JWKS una vez.
func (v *Verifier) keyFor(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key := v.keys[kid]
	age := v.now().Sub(v.keysAt)
	v.mu.RUnlock()

	if key != nil && age < jwksMaxAge {
		return key, nil
	}
	if key == nil && v.keys != nil && age < jwksMinRefresh {
		return nil, fmt.Errorf("kid %q not found", kid)
	}
	if err := v.refresh(ctx); err != nil {
		if key != nil {
			// JWKS caído: seguimos con la clave conocida
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if k := v.keys[kid]; k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("kid %q not found", kid)
}

// refresh descarga el JWKS; llamadas concurrentes comparten una sola request.
func (v *Verifier) refresh(ctx context.Context) error {
	_, err, _ := v.sf.Do("jwks", func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.JWKSURL, nil)
		if err != nil {
			return nil, err
		}
		v.mu.RLock()
		etag := v.jwksETag
		v.mu.RUnlock()
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}

		resp, err := v.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			v.mu.Lock()
			v.keysAt = v.now()
			v.mu.Unlock()
			return nil, nil
		}
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
		}
		var jj jwks
		if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
			return nil, fmt.Errorf("jwks decode: %w", err)
		}

		keys := make(map[string]*rsa.PublicKey, len(jj.Keys))
		for _, k := range jj.Keys {
			if !strings.EqualFold(k.Kty, "RSA") {
				continue
			}
			pub, err := rsaKey(k)
			if err != nil {
				continue
			}
			keys[k.Kid] = pub
		}

		v.mu.Lock()
		v.keys = keys
		v.keysAt = v.now()
		v.jwksETag = resp.Header.Get("ETag")
		v.mu.Unlock()
		return nil, nil
	})
	return err
}

func rsaKey(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 65537
	if len(eb) > 0 {
		e = 0
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
