// Package router arma el árbol de rutas HTTP sobre chi.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pisciapp/backend/internal/domain/repository"
	authctrl "github.com/pisciapp/backend/internal/http/controllers/auth"
	healthctrl "github.com/pisciapp/backend/internal/http/controllers/health"
	usersctrl "github.com/pisciapp/backend/internal/http/controllers/users"
	httperrors "github.com/pisciapp/backend/internal/http/errors"
	mw "github.com/pisciapp/backend/internal/http/middlewares"
	jwtx "github.com/pisciapp/backend/internal/jwt"
	"github.com/pisciapp/backend/internal/rate"
)

// Limits son los limiters por IP de los endpoints públicos sensibles.
// Un limiter nil deja el endpoint sin límite.
type Limits struct {
	Login    rate.Limiter
	Register rate.Limiter
	Google   rate.Limiter
	Forgot   rate.Limiter
	TwoFA    rate.Limiter
	Refresh  rate.Limiter
}

// Deps contiene todo lo que necesitan las rutas.
type Deps struct {
	Auth   *authctrl.Controllers
	Users  *usersctrl.Controller
	Health *healthctrl.Controllers

	Issuer   *jwtx.Issuer
	Sessions mw.SessionValidator
	UserRepo mw.UserLoader
	Now      func() time.Time

	Limits      Limits
	CORSOrigins []string

	// Metrics instrumenta cada request (nil = sin métricas) y MetricsHandler sirve /metrics.
	Metrics        mw.Middleware
	MetricsHandler http.Handler
}

// New construye el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRecover(), mw.WithRequestID())
	if d.Metrics != nil {
		r.Use(d.Metrics)
	}
	r.Use(mw.WithLogging(), mw.WithSecurityHeaders(), mw.WithCORS(d.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// ─── Health / Metrics (públicos) ───
	r.Get("/healthz", d.Health.Health.Live)
	r.Get("/readyz", d.Health.Health.Ready)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	requireAuth := mw.RequireAuth(d.Issuer, d.Sessions)
	limit := func(bucket string, l rate.Limiter) mw.Middleware {
		return mw.WithRateLimit(mw.RateLimitConfig{Bucket: bucket, Limiter: l})
	}

	// ─── /auth ───
	r.Route("/auth", func(r chi.Router) {
		r.Use(mw.WithNoStore())

		r.With(limit("register", d.Limits.Register)).Post("/register", d.Auth.Register.Register)
		r.With(limit("verify", d.Limits.Register)).Post("/verify", d.Auth.Register.Verify)
		r.With(limit("login", d.Limits.Login)).Post("/login", d.Auth.Login.Login)
		r.With(limit("google", d.Limits.Google)).Post("/google", d.Auth.Login.Google)
		r.With(limit("refresh", d.Limits.Refresh)).Post("/refresh", d.Auth.Session.Refresh)
		r.With(limit("refresh", d.Limits.Refresh)).Post("/logout", d.Auth.Session.Logout)
	})

	// ─── /usuarios ───
	r.Route("/usuarios", func(r chi.Router) {
		r.Use(mw.WithNoStore())

		r.With(limit("forgot", d.Limits.Forgot)).Post("/forgot-password", d.Auth.Password.Forgot)
		r.With(limit("reset", d.Limits.Forgot)).Post("/reset-password/{token}", d.Auth.Password.Reset)
		r.With(limit("twofa", d.Limits.TwoFA)).Post("/auth/2fa/verificar", d.Auth.Login.TwoFactor)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/auth/2fa/activar", d.Users.ActivateTwoFactor)
			r.Post("/auth/2fa/confirmar", d.Users.ConfirmTwoFactor)
			r.Post("/auth/2fa/desactivar", d.Users.DeactivateTwoFactor)

			r.Get("/me", d.Users.Me)
			r.Patch("/me/preferencias", d.Users.UpdatePreferences)
			r.Get("/me/sesiones", d.Users.Sessions)
			r.Delete("/me/sesiones/{id}", d.Users.RevokeSession)
			r.With(mw.RequireActiveSubscription(d.UserRepo, d.Now)).Get("/me/acceso", d.Users.Access)
		})
	})

	// ─── /admin ───
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.WithNoStore(), requireAuth, mw.RequireRole(string(repository.RoleAdmin)))

		r.Post("/usuarios/{id}/sesiones/revocar", d.Users.ForceSignOut)
	})

	return r
}
