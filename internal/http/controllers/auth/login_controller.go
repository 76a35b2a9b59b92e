package auth

import (
	"net/http"

	dto "github.com/pisciapp/backend/internal/http/dto/auth"
	httperrors "github.com/pisciapp/backend/internal/http/errors"
	"github.com/pisciapp/backend/internal/http/helpers"
	svc "github.com/pisciapp/backend/internal/http/services/auth"
	"github.com/pisciapp/backend/internal/observability/logger"
)

// LoginController maneja los tres caminos de login.
type LoginController struct {
	service svc.LoginService
	cookie  cookieWriter
}

func NewLoginController(service svc.LoginService, cookie helpers.CookieConfig) *LoginController {
	return &LoginController{service: service, cookie: cookieWriter{cfg: cookie}}
}

// Login handles POST /auth/login
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	var req dto.LoginRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.Login(ctx, req.Email, req.Password, helpers.Meta(r))
	if err != nil {
		log.Debug("login failed", logger.Err(err))
		writeAuthError(w, r, err)
		return
	}
	c.respond(w, res, "Inicio de sesión exitoso")
}

// Google handles POST /auth/google
func (c *LoginController) Google(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Google"))

	var req dto.GoogleLoginRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.FederatedLogin(ctx, req.Token(), helpers.Meta(r))
	if err != nil {
		log.Debug("google login failed", logger.Err(err))
		writeAuthError(w, r, err)
		return
	}
	c.respond(w, res, "Login con Google exitoso")
}

// TwoFactor handles POST /usuarios/auth/2fa/verificar
func (c *LoginController) TwoFactor(w http.ResponseWriter, r *http.Request) {
	var req dto.TwoFactorLoginRequest
	if err := helpers.DecodeJSON(w, r, maxBodySize, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.service.CompleteTwoFactorLogin(r.Context(), req.UserID, req.Token, helpers.Meta(r))
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	c.respond(w, res, "2FA validado correctamente")
}

func (c *LoginController) respond(w http.ResponseWriter, res *svc.LoginResult, msg string) {
	if res.Requires2FA {
		helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{
			Message:     "Se requiere el código de verificación en dos pasos",
			Requires2FA: true,
			UserID:      res.UserID,
		})
		return
	}

	c.cookie.set(w, res.Pair)
	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{
		Message:     msg,
		AccessToken: res.Pair.AccessToken,
		ExpiresIn:   expiresIn(res.Pair),
		User:        userSummary(res.User),
	})
}
