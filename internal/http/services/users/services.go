// Package users implementa los casos de uso del usuario autenticado: perfil,
// preferencias, estado de acceso, dispositivos y gestión del segundo factor.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pisciapp/backend/internal/audit"
	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/session"
	"github.com/pisciapp/backend/internal/twofactor"
)

var (
	ErrUserNotFound       = errors.New("users: user not found")
	ErrSessionNotFound    = errors.New("users: session not found")
	ErrInvalidPreferences = errors.New("users: invalid preferences")
)

// AccessStatus resume los flags de cobro que leen los gates.
type AccessStatus struct {
	TrialPeriod    bool
	GracePeriod    bool
	GraceExpiresAt *time.Time
	BillingDate    *time.Time
}

// PreferencesPatch: los campos nil no se tocan.
type PreferencesPatch struct {
	Notifications *bool
	Theme         *string
	Locale        *string
}

// Service es lo que exponen los controllers de /usuarios.
type Service interface {
	Profile(ctx context.Context, userID string) (*repository.User, error)
	UpdatePreferences(ctx context.Context, userID string, p PreferencesPatch) (*repository.Preferences, error)
	AccessStatus(ctx context.Context, userID string) (*AccessStatus, error)
	Sessions(ctx context.Context, userID string) ([]repository.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	ForceSignOut(ctx context.Context, actorID, targetID string) (int, error)

	ActivateTwoFactor(ctx context.Context, userID string) (uri string, err error)
	ConfirmTwoFactor(ctx context.Context, userID, code string) error
	DeactivateTwoFactor(ctx context.Context, userID, code string) error
}

// Deps contiene las dependencias del service.
type Deps struct {
	Users     repository.UserRepository
	Sessions  *session.Manager
	TwoFactor *twofactor.Verifier
}

type service struct {
	deps Deps
}

func NewService(d Deps) Service { return &service{deps: d} }

var (
	validThemes  = map[string]bool{"light": true, "dark": true, "system": true}
	validLocales = map[string]bool{"es": true, "en": true}
)

func (s *service) load(ctx context.Context, userID string) (*repository.User, error) {
	u, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("users: load: %w", err)
	}
	if u.Deleted {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *service) Profile(ctx context.Context, userID string) (*repository.User, error) {
	return s.load(ctx, userID)
}

func (s *service) UpdatePreferences(ctx context.Context, userID string, p PreferencesPatch) (*repository.Preferences, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Notifications != nil {
		u.Preferences.Notifications = *p.Notifications
	}
	if p.Theme != nil {
		t := strings.ToLower(strings.TrimSpace(*p.Theme))
		if !validThemes[t] {
			return nil, fmt.Errorf("%w: tema %q", ErrInvalidPreferences, *p.Theme)
		}
		u.Preferences.Theme = t
	}
	if p.Locale != nil {
		l := strings.ToLower(strings.TrimSpace(*p.Locale))
		if !validLocales[l] {
			return nil, fmt.Errorf("%w: idioma %q", ErrInvalidPreferences, *p.Locale)
		}
		u.Preferences.Locale = l
	}
	if err := s.deps.Users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("users: save preferences: %w", err)
	}
	return &u.Preferences, nil
}

func (s *service) AccessStatus(ctx context.Context, userID string) (*AccessStatus, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AccessStatus{
		TrialPeriod:    u.TrialPeriod,
		GracePeriod:    u.GracePeriod,
		GraceExpiresAt: u.GraceExpiresAt,
		BillingDate:    u.BillingDate,
	}, nil
}

func (s *service) Sessions(ctx context.Context, userID string) ([]repository.Session, error) {
	return s.deps.Sessions.ListActive(ctx, userID)
}

// RevokeSession cierra un dispositivo propio. Una sesión ajena se reporta
// igual que una inexistente.
func (s *service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	owns, err := s.deps.Sessions.Owns(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if !owns {
		return ErrSessionNotFound
	}
	if err := s.deps.Sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	audit.Log(ctx, audit.SessionRevoked, logger.UserID(userID), logger.SessionID(sessionID))
	return nil
}

// ForceSignOut revoca todas las sesiones de otra cuenta (acción de Admin).
// Las cuentas eliminadas también se pueden cerrar.
func (s *service) ForceSignOut(ctx context.Context, actorID, targetID string) (int, error) {
	if _, err := s.deps.Users.GetByID(ctx, targetID); err != nil {
		if repository.IsNotFound(err) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("users: force sign-out: %w", err)
	}
	n, err := s.deps.Sessions.RevokeAllForUser(ctx, targetID)
	if err != nil {
		return 0, err
	}
	audit.Log(ctx, audit.AllSessionsRevoked, logger.UserID(targetID), logger.Count(n), logger.String("actor_id", actorID))
	return n, nil
}

func (s *service) ActivateTwoFactor(ctx context.Context, userID string) (string, error) {
	if _, err := s.load(ctx, userID); err != nil {
		return "", err
	}
	return s.deps.TwoFactor.Activate(ctx, userID)
}

func (s *service) ConfirmTwoFactor(ctx context.Context, userID, code string) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	if err := s.deps.TwoFactor.Confirm(ctx, userID, code); err != nil {
		return err
	}
	audit.Log(ctx, audit.TwoFactorEnabled, logger.UserID(userID))
	return nil
}

func (s *service) DeactivateTwoFactor(ctx context.Context, userID, code string) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	if err := s.deps.TwoFactor.Deactivate(ctx, userID, code); err != nil {
		return err
	}
	audit.Log(ctx, audit.TwoFactorDisabled, logger.UserID(userID))
	return nil
}
