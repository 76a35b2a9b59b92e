// Package auth implementa los casos de uso de autenticación: registro,
// verificación de correo, login (contraseña, Google y segundo paso 2FA),
// refresh, logout y recuperación de contraseña.
package auth

import (
	"context"
	"errors"

	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/session"
)

// Errores de los casos de uso. Los controllers los traducen a AppError.
var (
	ErrMissingFields        = errors.New("auth: missing required fields")
	ErrWeakPassword         = errors.New("auth: password does not meet policy")
	ErrEmailTaken           = errors.New("auth: email already registered")
	ErrInvalidOrExpiredCode = errors.New("auth: invalid or expired verification code")
	ErrUserNotFound         = errors.New("auth: user not found")
	ErrNotVerified          = errors.New("auth: email not verified")
	ErrNoPassword           = errors.New("auth: account has no password (federated)")
	ErrWrongPassword        = errors.New("auth: wrong password")
	ErrGoogleDisabled       = errors.New("auth: google login disabled")
	ErrInvalidGoogleToken   = errors.New("auth: invalid google id token")
	ErrMissingRefresh       = errors.New("auth: missing refresh credential")
	ErrInvalidResetToken    = errors.New("auth: invalid or expired reset token")
)

// LoginResult es el resultado de cualquier variante de login. Si
// Requires2FA es true no hay sesión: el cliente debe completar el segundo paso.
type LoginResult struct {
	Pair        *session.Pair
	User        *repository.User
	Requires2FA bool
	UserID      string
}

// RegisterService cubre el alta de cuentas y la verificación de correo.
type RegisterService interface {
	Register(ctx context.Context, name, email, password string) (userID string, err error)
	VerifyEmail(ctx context.Context, email, code string) error
}

// LoginService cubre los tres caminos de login.
type LoginService interface {
	Login(ctx context.Context, email, password string, meta session.Meta) (*LoginResult, error)
	FederatedLogin(ctx context.Context, idToken string, meta session.Meta) (*LoginResult, error)
	CompleteTwoFactorLogin(ctx context.Context, userID, code string, meta session.Meta) (*LoginResult, error)
}

// SessionService rota y cierra sesiones a partir de la credencial de refresh.
type SessionService interface {
	Refresh(ctx context.Context, credential string, meta session.Meta) (*session.Pair, error)
	Logout(ctx context.Context, credential string) error
}

// PasswordService cubre la recuperación de contraseña por correo.
type PasswordService interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}
