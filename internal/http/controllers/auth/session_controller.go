package auth

import (
	"net/http"

	dto "github.com/pisciapp/backend/internal/http/dto/auth"
	httperrors "github.com/pisciapp/backend/internal/http/errors"
	"github.com/pisciapp/backend/internal/http/helpers"
	svc "github.com/pisciapp/backend/internal/http/services/auth"
	"github.com/pisciapp/backend/internal/observability/logger"
)

// SessionController maneja POST /auth/refresh y POST /auth/logout.
type SessionController struct {
	service svc.SessionService
	cookie  cookieWriter
}

func NewSessionController(service svc.SessionService, cookie helpers.CookieConfig) *SessionController {
	return &SessionController{service: service, cookie: cookieWriter{cfg: cookie}}
}

// Refresh handles POST /auth/refresh. Si la credencial no sirve la cookie se
// borra para que el navegador no la siga mandando.
func (c *SessionController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SessionController.Refresh"))

	var req dto.RefreshRequest
	// con cookie el body no hace falta: un JSON roto solo importa si no hay cookie
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil && c.cookie.cfg.Read(r) == "" {
		httperrors.WriteError(w, err)
		return
	}

	pair, err := c.service.Refresh(ctx, c.cookie.credential(r, req), helpers.Meta(r))
	if err != nil {
		log.Debug("refresh failed", logger.Err(err))
		c.cookie.clear(w)
		writeAuthError(w, r, err)
		return
	}

	c.cookie.set(w, pair)
	helpers.WriteJSON(w, http.StatusOK, dto.RefreshResponse{
		AccessToken: pair.AccessToken,
		ExpiresIn:   expiresIn(pair),
	})
}

// Logout handles POST /auth/logout. Siempre 200 y cookie borrada.
func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	// un body inválido no impide cerrar la sesión de la cookie
	_ = helpers.DecodeJSON(w, r, maxBodySize, &req)

	_ = c.service.Logout(r.Context(), c.cookie.credential(r, req))

	c.cookie.clear(w)
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Sesión cerrada"})
}
