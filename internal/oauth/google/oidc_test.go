package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "pisci-web.apps.googleusercontent.com"

type fakeGoogle struct {
	key  *rsa.PrivateKey
	kid  string
	srv  *httptest.Server
	hits int32
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	g := &fakeGoogle{key: key, kid: "k1"}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.hits, 1)
		pub := g.key.PublicKey
		_ = json.NewEncoder(w).Encode(jwks{Keys: []jwk{{
			Kty: "RSA",
			Alg: "RS256",
			Kid: g.kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGoogle) sign(t *testing.T, mut func(jwtv5.MapClaims)) string {
	t.Helper()
	now := time.Now()
	claims := jwtv5.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testClientID,
		"sub":            "1234567890",
		"email":          "ana@gmail.com",
		"email_verified": true,
		"name":           "Ana",
		"picture":        "https://lh3.googleusercontent.com/a/x",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
	if mut != nil {
		mut(claims)
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tok.Header["kid"] = g.kid
	s, err := tok.SignedString(g.key)
	require.NoError(t, err)
	return s
}

func (g *fakeGoogle) verifier() *Verifier {
	v := New(testClientID)
	v.JWKSURL = g.srv.URL
	return v
}

func TestVerifyIDToken_OK(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier()

	c, err := v.VerifyIDToken(context.Background(), g.sign(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "1234567890", c.Sub)
	assert.Equal(t, "ana@gmail.com", c.Email)
	assert.True(t, c.EmailVerified)
	assert.Equal(t, "Ana", c.Name)

	// Segunda verificación usa el JWKS cacheado.
	_, err = v.VerifyIDToken(context.Background(), g.sign(t, nil))
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&g.hits))
}

func TestVerifyIDToken_Rejections(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier()
	ctx := context.Background()

	cases := map[string]func(jwtv5.MapClaims){
		"wrong aud": func(c jwtv5.MapClaims) { c["aud"] = "other-client" },
		"wrong iss": func(c jwtv5.MapClaims) { c["iss"] = "https://evil.example" },
		"expired":   func(c jwtv5.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() },
		"no exp":    func(c jwtv5.MapClaims) { delete(c, "exp") },
		"no email":  func(c jwtv5.MapClaims) { delete(c, "email") },
	}
	for name, mut := range cases {
		_, err := v.VerifyIDToken(ctx, g.sign(t, mut))
		assert.ErrorIs(t, err, ErrInvalidIDToken, name)
	}

	_, err := v.VerifyIDToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidIDToken)
}

func TestVerifyIDToken_EmailNotVerified(t *testing.T) {
	g := newFakeGoogle(t)
	_, err := g.verifier().VerifyIDToken(context.Background(), g.sign(t, func(c jwtv5.MapClaims) {
		c["email_verified"] = false
	}))
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestVerifyIDToken_ForeignSignature(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier()
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, jwtv5.MapClaims{
		"iss": "https://accounts.google.com", "aud": testClientID, "sub": "1",
		"email": "x@y.z", "email_verified": true, "exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = g.kid
	raw, err := tok.SignedString(other)
	require.NoError(t, err)

	_, err = v.VerifyIDToken(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidIDToken)
}
