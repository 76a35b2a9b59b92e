package middlewares

import (
	"context"
	"net/http"
	"time"

	"github.com/pisciapp/backend/internal/domain/repository"
	httperrors "github.com/pisciapp/backend/internal/http/errors"
)

// UserLoader resuelve el usuario autenticado para los gates de acceso.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
}

// AccessError evalúa los flags de cobro del usuario en el orden
// gracia -> prueba -> suscripción. nil = acceso permitido.
// Admin nunca queda bloqueado.
func AccessError(u *repository.User, now time.Time) *httperrors.AppError {
	if u.Role == repository.RoleAdmin {
		return nil
	}
	if u.GracePeriod {
		if u.GraceExpiresAt != nil && u.GraceExpiresAt.Before(now) {
			return httperrors.ErrGraceExpired
		}
		return httperrors.ErrPaymentFailed
	}
	if u.TrialPeriod && u.BillingDate != nil && u.BillingDate.Before(now) {
		return httperrors.ErrTrialEnded
	}
	if u.BillingDate == nil || u.BillingDate.Before(now) {
		return httperrors.ErrSubscriptionInactive
	}
	return nil
}

// RequireActiveSubscription bloquea con 403 a las cuentas sin acceso vigente.
// Debe ir después de RequireAuth.
func RequireActiveSubscription(users UserLoader, now func() time.Time) Middleware {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := GetUserID(r.Context())
			if uid == "" {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			u, err := users.GetByID(r.Context(), uid)
			if err != nil {
				if repository.IsNotFound(err) {
					httperrors.WriteError(w, httperrors.ErrUserNotFound)
					return
				}
				httperrors.WriteErrorCtx(w, r, httperrors.ErrInternalServerError.WithCause(err))
				return
			}
			if appErr := AccessError(u, now()); appErr != nil {
				httperrors.WriteError(w, appErr)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
