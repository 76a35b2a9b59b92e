// Package audit registra eventos de seguridad de las cuentas (logins,
// cierres de sesión, cambios de contraseña y de 2FA) en un logger propio
// "audit", separado del log operativo para poder rutearlo a otro sink.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/pisciapp/backend/internal/observability/logger"
)

// Event nombra un evento auditable.
type Event string

const (
	LoginSucceeded     Event = "login.succeeded"
	LoginFailed        Event = "login.failed"
	LoginChallenged    Event = "login.2fa_challenged"
	Logout             Event = "logout"
	PasswordReset      Event = "password.reset"
	EmailVerified      Event = "email.verified"
	TwoFactorEnabled   Event = "2fa.enabled"
	TwoFactorDisabled  Event = "2fa.disabled"
	SessionRevoked     Event = "session.revoked"
	AllSessionsRevoked Event = "session.revoked_all"
	AdminCreated       Event = "admin.created"
)

// Log escribe el evento con el logger del contexto (que ya trae request_id).
func Log(ctx context.Context, ev Event, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Info(string(ev), append(fields, zap.String("event", string(ev)))...)
}

// Failure registra un evento fallido con el motivo.
func Failure(ctx context.Context, ev Event, reason error, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Warn(string(ev), append(fields, zap.String("event", string(ev)), logger.Err(reason))...)
}
