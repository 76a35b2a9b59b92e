package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/pisciapp/backend/internal/http/errors"
	jwtx "github.com/pisciapp/backend/internal/jwt"
	"github.com/pisciapp/backend/internal/observability/logger"
)

// SessionValidator confirma que la sesión (sid) del bearer sigue viva.
type SessionValidator interface {
	Validate(ctx context.Context, sessionID string) error
}

// RequireAuth valida Authorization: Bearer <JWT>, después la sesión a la que
// apunta su sid, y guarda las claims en el contexto. Cualquier fallo es 401.
func RequireAuth(issuer *jwtx.Issuer, sessions SessionValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := issuer.VerifyAccess(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				if errors.Is(err, jwtx.ErrTokenExpired) {
					httperrors.WriteError(w, httperrors.ErrTokenExpired)
					return
				}
				httperrors.WriteError(w, httperrors.ErrTokenInvalid)
				return
			}

			if sessions != nil {
				if err := sessions.Validate(r.Context(), claims.SessionID); err != nil {
					logger.From(r.Context()).Debug("bearer session rejected",
						logger.SessionID(claims.SessionID), logger.Err(err))
					w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="session revoked"`)
					httperrors.WriteError(w, httperrors.ErrSessionExpired)
					return
				}
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(claims.Subject)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole deja pasar solo a los roles indicados. Debe ir después de RequireAuth.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			for _, role := range roles {
				if strings.EqualFold(claims.Role, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httperrors.WriteError(w, httperrors.ErrForbidden)
		})
	}
}
