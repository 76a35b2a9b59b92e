package jwt

import (
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

func (i *Issuer) keyfunc(typ string) jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		if got, _ := t.Header["typ"].(string); got != typ {
			return nil, fmt.Errorf("unexpected typ %q", got)
		}
		if kid, _ := t.Header["kid"].(string); kid != i.Keys.KID {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return i.Keys.Pub, nil
	}
}

func (i *Issuer) parse(raw string, claims jwtv5.Claims, typ, aud string) error {
	_, err := jwtv5.ParseWithClaims(raw, claims, i.keyfunc(typ),
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodEdDSA.Alg()}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithAudience(aud),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(leeway),
		jwtv5.WithTimeFunc(i.clock),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

// VerifyAccess valida firma, iss, aud y exp/nbf (±30s) del bearer.
func (i *Issuer) VerifyAccess(raw string) (*AccessClaims, error) {
	var c AccessClaims
	if err := i.parse(raw, &c, typAccess, AccessAudience); err != nil {
		return nil, err
	}
	if c.Subject == "" || c.SessionID == "" {
		return nil, fmt.Errorf("%w: missing sub or sid", ErrTokenInvalid)
	}
	return &c, nil
}

// VerifyReset valida un token de recuperación.
func (i *Issuer) VerifyReset(raw string) (*ResetClaims, error) {
	var c ResetClaims
	if err := i.parse(raw, &c, typReset, ResetAudience); err != nil {
		return nil, err
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrTokenInvalid)
	}
	return &c, nil
}
