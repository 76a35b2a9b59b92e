// Package auth contiene los controllers de /auth y del segundo paso de 2FA.
package auth

import (
	"net/http"
	"time"

	"github.com/pisciapp/backend/internal/domain/repository"
	dto "github.com/pisciapp/backend/internal/http/dto/auth"
	"github.com/pisciapp/backend/internal/http/helpers"
	svc "github.com/pisciapp/backend/internal/http/services/auth"
	"github.com/pisciapp/backend/internal/session"
)

const maxBodySize = 16 * 1024

// Controllers agrupa todos los controllers del dominio auth.
type Controllers struct {
	Register *RegisterController
	Login    *LoginController
	Session  *SessionController
	Password *PasswordController
}

// NewControllers crea el agregador. cookie describe la cookie del refresh token.
func NewControllers(s svc.Services, cookie helpers.CookieConfig) *Controllers {
	return &Controllers{
		Register: NewRegisterController(s.Register),
		Login:    NewLoginController(s.Login, cookie),
		Session:  NewSessionController(s.Session, cookie),
		Password: NewPasswordController(s.Password),
	}
}

// cookieWriter setea y limpia la cookie del refresh token.
type cookieWriter struct {
	cfg helpers.CookieConfig
}

func (c cookieWriter) set(w http.ResponseWriter, p *session.Pair) {
	ttl := time.Until(p.RefreshExpiresAt)
	http.SetCookie(w, c.cfg.BuildCookie(p.RefreshToken, ttl))
}

func (c cookieWriter) clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cfg.BuildDeletionCookie())
}

// credential toma el refresh token de la cookie o, si no viene, del body.
func (c cookieWriter) credential(r *http.Request, body dto.RefreshRequest) string {
	if v := c.cfg.Read(r); v != "" {
		return v
	}
	return body.RefreshToken
}

func userSummary(u *repository.User) *dto.UserSummary {
	if u == nil {
		return nil
	}
	out := &dto.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
	if u.Photo != nil {
		out.Photo = *u.Photo
	}
	return out
}

func expiresIn(p *session.Pair) int64 {
	return int64(time.Until(p.AccessExpiresAt).Seconds())
}
