package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/pisciapp/backend/internal/audit"
	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/observability/logger"
	tokens "github.com/pisciapp/backend/internal/security/token"
)

type passwordService struct {
	deps Deps
}

// passwordFingerprint liga el token de reset al hash vigente: al cambiar la
// contraseña, todo link emitido antes deja de servir.
func passwordFingerprint(u *repository.User) string {
	var h string
	if u.PasswordHash != nil {
		h = *u.PasswordHash
	}
	return tokens.SHA256Base64URL(u.ID + ":" + h)[:22]
}

// ForgotPassword envía el link de recuperación. Un correo desconocido es
// ErrUserNotFound (la API responde 404).
func (s *passwordService) ForgotPassword(ctx context.Context, email string) error {
	log := serviceLog(ctx, "auth.password", "ForgotPassword")

	email = repository.NormalizeEmail(email)
	if email == "" {
		return ErrMissingFields
	}
	u, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("forgot: lookup: %w", err)
	}
	if u.Deleted {
		return ErrUserNotFound
	}

	tok, err := s.deps.Tokens.IssueReset(u.ID, passwordFingerprint(u), s.deps.ResetTTL)
	if err != nil {
		return fmt.Errorf("forgot: issue token: %w", err)
	}
	link := strings.TrimRight(s.deps.FrontendURL, "/") + "/reset-password/" + tok
	if err := s.deps.Mailer.SendResetPassword(u.Email, u.Name, link, s.deps.ResetTTL); err != nil {
		return fmt.Errorf("forgot: send: %w", err)
	}
	log.Info("reset link sent", logger.UserID(u.ID))
	return nil
}

// ResetPassword cambia la contraseña con un token de reset válido y revoca
// todas las sesiones del usuario.
func (s *passwordService) ResetPassword(ctx context.Context, token, newPassword string) error {
	log := serviceLog(ctx, "auth.password", "ResetPassword")

	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return ErrMissingFields
	}
	claims, err := s.deps.Tokens.VerifyReset(token)
	if err != nil {
		log.Debug("reset token rejected", logger.Err(err))
		return ErrInvalidResetToken
	}
	if ok, _ := s.deps.Policy.Validate(newPassword); !ok {
		return ErrWeakPassword
	}

	u, err := s.deps.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("reset: load user: %w", err)
	}
	if u.Deleted || claims.Fingerprint != passwordFingerprint(u) {
		return ErrInvalidResetToken
	}

	hash, err := s.deps.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("reset: hash: %w", err)
	}
	u.PasswordHash = &hash
	if err := s.deps.Users.Update(ctx, u); err != nil {
		return fmt.Errorf("reset: save: %w", err)
	}
	log = log.With(logger.UserID(u.ID))

	if n, err := s.deps.Sessions.RevokeAllForUser(ctx, u.ID); err != nil {
		log.Error("revoke sessions after reset failed", logger.Err(err))
	} else {
		log.Info("password reset", logger.Count(n))
	}
	audit.Log(ctx, audit.PasswordReset, logger.UserID(u.ID))

	if err := s.deps.Mailer.SendResetConfirmation(u.Email, u.Name); err != nil {
		log.Warn("reset confirmation email failed", logger.Err(err))
	}
	return nil
}
