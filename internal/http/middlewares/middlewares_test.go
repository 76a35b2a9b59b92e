package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pisciapp/backend/internal/domain/repository"
	httperrors "github.com/pisciapp/backend/internal/http/errors"
	jwtx "github.com/pisciapp/backend/internal/jwt"
	"github.com/pisciapp/backend/internal/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func TestAccessError(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	cases := []struct {
		name string
		user repository.User
		want *httperrors.AppError
	}{
		{"trial vigente", repository.User{Role: repository.RoleCliente, TrialPeriod: true, BillingDate: &future}, nil},
		{"suscripcion vigente", repository.User{Role: repository.RoleCliente, BillingDate: &future}, nil},
		{"prueba vencida", repository.User{Role: repository.RoleCliente, TrialPeriod: true, BillingDate: &past}, httperrors.ErrTrialEnded},
		{"sin fecha de cobro", repository.User{Role: repository.RoleTrabajador}, httperrors.ErrSubscriptionInactive},
		{"cobro vencido", repository.User{Role: repository.RoleCliente, BillingDate: &past}, httperrors.ErrSubscriptionInactive},
		{"gracia activa", repository.User{Role: repository.RoleCliente, GracePeriod: true, GraceExpiresAt: &future, BillingDate: &future}, httperrors.ErrPaymentFailed},
		{"gracia vencida", repository.User{Role: repository.RoleCliente, GracePeriod: true, GraceExpiresAt: &past}, httperrors.ErrGraceExpired},
		{"gracia antes que prueba", repository.User{Role: repository.RoleCliente, GracePeriod: true, TrialPeriod: true, BillingDate: &past}, httperrors.ErrPaymentFailed},
		{"admin nunca bloqueado", repository.User{Role: repository.RoleAdmin, GracePeriod: true, GraceExpiresAt: &past}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.user
			assert.Equal(t, tc.want, AccessError(&u, now))
		})
	}
}

type usersStub map[string]*repository.User

func (s usersStub) GetByID(_ context.Context, id string) (*repository.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func TestRequireActiveSubscription(t *testing.T) {
	gate := RequireActiveSubscription(usersStub{}, nil)(okHandler)

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxUserIDKey, "ghost"))
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usuario no encontrado")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (rate.Result, error) {
	return rate.Result{}, errors.New("redis down")
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(string(repository.RoleAdmin))(okHandler)
	serve := func(claims *jwtx.AccessClaims) int {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		if claims != nil {
			req = req.WithContext(WithClaims(req.Context(), claims))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&jwtx.AccessClaims{Role: "Cliente"}))
	assert.Equal(t, http.StatusOK, serve(&jwtx.AccessClaims{Role: "admin"}))
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := WithRateLimit(RateLimitConfig{Bucket: "login", Limiter: failingLimiter{}})(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitKeysByBucket(t *testing.T) {
	l := rate.NewMemoryLimiter(1, time.Minute)
	login := WithRateLimit(RateLimitConfig{Bucket: "login", Limiter: l})(okHandler)
	register := WithRateLimit(RateLimitConfig{Bucket: "register", Limiter: l})(okHandler)

	serve := func(h http.Handler) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "198.51.100.1:1234"
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, serve(login))
	assert.Equal(t, http.StatusTooManyRequests, serve(login))
	assert.Equal(t, http.StatusOK, serve(register))
}

func TestRequestIDPropagation(t *testing.T) {
	var seen string
	h := WithRequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
	h.ServeHTTP(rec, req)
	assert.Len(t, seen, 36)
}

func TestRecoverWritesInternalError(t *testing.T) {
	h := WithRecover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := WithCORS([]string{"https://pisci.app"})(okHandler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://pisci.app")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://pisci.app", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
