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

const verificationCodeDigits = 6

type registerService struct {
	deps Deps
}

// Register crea la cuenta (o reactiva una eliminada) y envía el código de
// verificación. La cuenta queda sin verificar hasta VerifyEmail.
func (s *registerService) Register(ctx context.Context, name, email, password string) (string, error) {
	log := serviceLog(ctx, "auth.register", "Register")

	name = strings.TrimSpace(name)
	email = repository.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return "", ErrMissingFields
	}
	if ok, reasons := s.deps.Policy.Validate(password); !ok {
		log.Debug("weak password", logger.Any("reasons", reasons))
		return "", ErrWeakPassword
	}

	existing, err := s.deps.Users.GetByEmail(ctx, email)
	switch {
	case err == nil && !existing.Deleted:
		return "", ErrEmailTaken
	case err != nil && !repository.IsNotFound(err):
		return "", fmt.Errorf("register: lookup: %w", err)
	}

	hash, err := s.deps.Hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("register: hash: %w", err)
	}
	code, err := tokens.NumericCode(verificationCodeDigits)
	if err != nil {
		return "", err
	}
	now := s.deps.Now().UTC()

	var u *repository.User
	if existing != nil {
		// Reactivación: la cuenta eliminada se reescribe como un alta nueva.
		u = existing
		u.Name = name
		u.PasswordHash = &hash
		// el vínculo con Google lo rehace el próximo login federado
		u.GoogleID = nil
		u.Deleted = false
		u.IsVerified = false
		clearTwoFactor(u)
		startTrial(u, now, s.deps.TrialDays)
		u.SetVerification(code, now.Add(s.deps.VerifyTTL))
		if err := s.deps.Users.Update(ctx, u); err != nil {
			return "", fmt.Errorf("register: reactivate: %w", err)
		}
		log.Info("account reactivated", logger.UserID(u.ID))
	} else {
		u = &repository.User{
			Email:        email,
			Name:         name,
			PasswordHash: &hash,
			Role:         repository.RoleCliente,
			Preferences:  repository.DefaultPreferences(),
		}
		startTrial(u, now, s.deps.TrialDays)
		u.SetVerification(code, now.Add(s.deps.VerifyTTL))
		if err := s.deps.Users.Create(ctx, u); err != nil {
			if repository.IsConflict(err) {
				return "", ErrEmailTaken
			}
			return "", fmt.Errorf("register: create: %w", err)
		}
		log.Info("account created", logger.UserID(u.ID))
	}

	if err := s.deps.Mailer.SendVerification(u.Email, u.Name, code, s.deps.VerifyTTL); err != nil {
		return "", fmt.Errorf("register: send verification: %w", err)
	}
	return u.ID, nil
}

// VerifyEmail marca verificado si el código coincide y no venció. Un correo
// desconocido da el mismo error que un código incorrecto.
func (s *registerService) VerifyEmail(ctx context.Context, email, code string) error {
	email = repository.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return ErrMissingFields
	}

	u, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("verify: lookup: %w", err)
	}
	if u.Deleted || u.VerificationCode == nil || u.VerificationExpiresAt == nil {
		return ErrInvalidOrExpiredCode
	}
	if !tokens.EqualTrimmed(*u.VerificationCode, code) || s.deps.Now().After(*u.VerificationExpiresAt) {
		return ErrInvalidOrExpiredCode
	}

	u.ClearVerification()
	if err := s.deps.Users.Update(ctx, u); err != nil {
		return fmt.Errorf("verify: save: %w", err)
	}
	audit.Log(ctx, audit.EmailVerified, logger.UserID(u.ID))
	return nil
}
