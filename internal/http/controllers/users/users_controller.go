// Package users contiene los controllers de /usuarios/me y de la gestión de 2FA.
package users

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pisciapp/backend/internal/domain/repository"
	dto "github.com/pisciapp/backend/internal/http/dto/users"
	httperrors "github.com/pisciapp/backend/internal/http/errors"
	"github.com/pisciapp/backend/internal/http/helpers"
	mw "github.com/pisciapp/backend/internal/http/middlewares"
	svc "github.com/pisciapp/backend/internal/http/services/users"
	"github.com/pisciapp/backend/internal/twofactor"
)

const maxBodySize = 8 * 1024

// Controller agrupa los endpoints del usuario autenticado.
type Controller struct {
	service svc.Service
}

func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Me handles GET /usuarios/me
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	u, err := c.service.Profile(r.Context(), mw.GetUserID(r.Context()))
	if err != nil {
		writeUsersError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, profile(u))
}

// UpdatePreferences handles PATCH /usuarios/me/preferencias
func (c *Controller) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdatePreferencesRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	prefs, err := c.service.UpdatePreferences(r.Context(), mw.GetUserID(r.Context()), svc.PreferencesPatch{
		Notifications: req.Notifications,
		Theme:         req.Theme,
		Locale:        req.Locale,
	})
	if err != nil {
		writeUsersError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.PreferencesDTO{
		Notifications: prefs.Notifications,
		Theme:         prefs.Theme,
		Locale:        prefs.Locale,
	})
}

// Sessions handles GET /usuarios/me/sesiones
func (c *Controller) Sessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := c.service.Sessions(ctx, mw.GetUserID(ctx))
	if err != nil {
		writeUsersError(w, r, err)
		return
	}

	var current string
	if claims := mw.GetClaims(ctx); claims != nil {
		current = claims.SessionID
	}
	out := dto.SessionsResponse{Sessions: make([]dto.SessionItem, 0, len(list))}
	for _, s := range list {
		item := dto.SessionItem{
			ID:         s.ID,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
			LastUsedAt: s.LastUsedAt,
			Current:    s.ID == current,
		}
		if s.IPAddress != nil {
			item.IPAddress = *s.IPAddress
		}
		if s.UserAgent != nil {
			item.UserAgent = *s.UserAgent
		}
		out.Sessions = append(out.Sessions, item)
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// RevokeSession handles DELETE /usuarios/me/sesiones/{id}
func (c *Controller) RevokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := c.service.RevokeSession(ctx, mw.GetUserID(ctx), chi.URLParam(r, "id")); err != nil {
		writeUsersError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ForceSignOut handles POST /admin/usuarios/{id}/sesiones/revocar
func (c *Controller) ForceSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := c.service.ForceSignOut(ctx, mw.GetUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeUsersError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ForceSignOutResponse{Revoked: n})
}

// Access handles GET /usuarios/me/acceso. Solo se llega acá si el gate de
// suscripción dejó pasar.
func (c *Controller) Access(w http.ResponseWriter, r *http.Request) {
	st, err := c.service.AccessStatus(r.Context(), mw.GetUserID(r.Context()))
	if err != nil {
		writeUsersError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.AccessResponse{
		Active:      true,
		TrialPeriod: st.TrialPeriod,
		BillingDate: st.BillingDate,
	})
}

// ActivateTwoFactor handles POST /usuarios/auth/2fa/activar
func (c *Controller) ActivateTwoFactor(w http.ResponseWriter, r *http.Request) {
	uri, err := c.service.ActivateTwoFactor(r.Context(), mw.GetUserID(r.Context()))
	if err != nil {
		writeUsersError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.TwoFactorActivateResponse{Message: "2FA activado", QRCodeURL: uri})
}

// ConfirmTwoFactor handles POST /usuarios/auth/2fa/confirmar
func (c *Controller) ConfirmTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req dto.TwoFactorCodeRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := c.service.ConfirmTwoFactor(r.Context(), mw.GetUserID(r.Context()), req.Token); err != nil {
		writeUsersError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.TwoFactorStatusResponse{Message: "2FA confirmado", Enabled: true})
}

// DeactivateTwoFactor handles POST /usuarios/auth/2fa/desactivar
func (c *Controller) DeactivateTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req dto.TwoFactorCodeRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := c.service.DeactivateTwoFactor(r.Context(), mw.GetUserID(r.Context()), req.Token); err != nil {
		writeUsersError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.TwoFactorStatusResponse{Message: "2FA desactivado", Enabled: false})
}

func profile(u *repository.User) dto.ProfileResponse {
	out := dto.ProfileResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         string(u.Role),
		IsVerified:   u.IsVerified,
		TwoFAEnabled: u.TwoFAEnabled,
		TrialPeriod:  u.TrialPeriod,
		GracePeriod:  u.GracePeriod,
		BillingDate:  u.BillingDate,
		Preferences: dto.PreferencesDTO{
			Notifications: u.Preferences.Notifications,
			Theme:         u.Preferences.Theme,
			Locale:        u.Preferences.Locale,
		},
		CreatedAt: u.CreatedAt,
	}
	if u.Photo != nil {
		out.Photo = *u.Photo
	}
	if u.Phone != nil {
		out.Phone = *u.Phone
	}
	return out
}

// ─── Error Mapping ───

func writeUsersError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, svc.ErrUserNotFound):
		httperrors.WriteError(w, httperrors.ErrUserNotFound)
	case errors.Is(err, svc.ErrSessionNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound.WithMessage("Sesión no encontrada"))
	case errors.Is(err, svc.ErrInvalidPreferences):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(err.Error()))
	case errors.Is(err, twofactor.ErrNoPendingActivation):
		httperrors.WriteError(w, httperrors.ErrTwoFactorNoPending)
	case errors.Is(err, twofactor.ErrNotEnabled):
		httperrors.WriteError(w, httperrors.ErrTwoFactorNotEnabled)
	case errors.Is(err, twofactor.ErrInvalidProof):
		httperrors.WriteError(w, httperrors.ErrInvalidTwoFactorCode)
	default:
		httperrors.WriteErrorCtx(w, r, httperrors.ErrInternalServerError.WithCause(err))
	}
}
