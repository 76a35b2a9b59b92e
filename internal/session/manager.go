// Package session es el Session Manager: emite, rota y revoca sesiones
// respaldadas por el ledger de refresh tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pisciapp/backend/internal/domain/repository"
	jwtx "github.com/pisciapp/backend/internal/jwt"
	"github.com/pisciapp/backend/internal/metrics"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/security/password"
)

var (
	ErrInvalidRotationCredential = errors.New("session: invalid rotation credential")
	ErrRotationCredentialExpired = errors.New("session: rotation credential expired")
	ErrSessionRevoked            = errors.New("session: revoked")
)

// Meta describe el dispositivo que abre o rota la sesión.
type Meta struct {
	IP        string
	UserAgent string
}

// Pair es el resultado de Issue/Rotate.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// Deps contiene las dependencias del Manager.
type Deps struct {
	Sessions   repository.SessionRepository
	Users      repository.UserRepository
	Tokens     *jwtx.Issuer
	Hasher     *password.Hasher
	RefreshTTL time.Duration
	Now        func() time.Time
}

type Manager struct {
	sessions   repository.SessionRepository
	users      repository.UserRepository
	tokens     *jwtx.Issuer
	hasher     *password.Hasher
	refreshTTL time.Duration
	now        func() time.Time
}

func NewManager(d Deps) *Manager {
	if d.RefreshTTL <= 0 {
		d.RefreshTTL = 7 * 24 * time.Hour
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Manager{
		sessions:   d.Sessions,
		users:      d.Users,
		tokens:     d.Tokens,
		hasher:     d.Hasher,
		refreshTTL: d.RefreshTTL,
		now:        d.Now,
	}
}

func (m *Manager) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("service"), logger.Component("session"), logger.Op(op))
}

// Issue crea una sesión nueva para user. No toca las demás sesiones del usuario.
func (m *Manager) Issue(ctx context.Context, user *repository.User, meta Meta) (*Pair, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	hash, err := m.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("session: hash secret: %w", err)
	}

	now := m.now().UTC()
	sess, err := m.sessions.Create(ctx, repository.CreateSessionInput{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		RefreshTokenHash: hash,
		ExpiresAt:        now.Add(m.refreshTTL),
		IPAddress:        meta.IP,
		UserAgent:        meta.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}

	access, accessExp, err := m.tokens.IssueAccess(user.ID, user.Email, string(user.Role), sess.ID)
	if err != nil {
		// sin access token la sesión no sirve
		_ = m.sessions.Revoke(ctx, sess.ID)
		return nil, fmt.Errorf("session: issue access: %w", err)
	}

	metrics.SessionsIssued.Inc()
	m.log(ctx, "Issue").Debug("session issued", logger.UserID(user.ID), logger.SessionID(sess.ID))

	return &Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     Credential{SessionID: sess.ID, Secret: secret}.String(),
		RefreshExpiresAt: sess.ExpiresAt,
		SessionID:        sess.ID,
	}, nil
}

// lookup resuelve la credencial a su sesión verificando el secreto.
// Retorna ErrInvalidRotationCredential si no existe, está revocada o el secreto no coincide.
func (m *Manager) lookup(ctx context.Context, raw string) (*repository.Session, error) {
	cred, err := ParseCredential(raw)
	if err != nil {
		return nil, err
	}
	sess, err := m.sessions.FindByID(ctx, cred.SessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidRotationCredential
		}
		return nil, err
	}
	if sess.IsRevoked {
		return nil, ErrInvalidRotationCredential
	}
	if !m.hasher.Verify(cred.Secret, sess.RefreshTokenHash) {
		return nil, ErrInvalidRotationCredential
	}
	return sess, nil
}

// Rotate canjea una credencial de refresh por un par nuevo. La credencial es
// de un solo uso: entre llamadas concurrentes solo una gana el claim.
func (m *Manager) Rotate(ctx context.Context, raw string, meta Meta) (*Pair, error) {
	log := m.log(ctx, "Rotate")

	sess, err := m.lookup(ctx, raw)
	if err != nil {
		metrics.SessionRotations.WithLabelValues("invalid").Inc()
		return nil, err
	}
	log = log.With(logger.SessionID(sess.ID), logger.UserID(sess.UserID))

	now := m.now().UTC()
	if sess.Expired(now) {
		_ = m.sessions.Revoke(ctx, sess.ID)
		metrics.SessionRotations.WithLabelValues("expired").Inc()
		return nil, ErrRotationCredentialExpired
	}

	claimed, err := m.sessions.ClaimForRotation(ctx, sess.ID, now)
	if err != nil {
		return nil, fmt.Errorf("session: claim: %w", err)
	}
	if !claimed {
		metrics.SessionRotations.WithLabelValues("race").Inc()
		log.Warn("refresh credential already consumed")
		return nil, ErrInvalidRotationCredential
	}

	user, err := m.users.GetByID(ctx, sess.UserID)
	if err != nil || user.Deleted {
		metrics.SessionRotations.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidRotationCredential
	}

	pair, err := m.Issue(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	metrics.SessionRotations.WithLabelValues("ok").Inc()
	log.Debug("session rotated", zap.String("new_sid", pair.SessionID))
	return pair, nil
}

// Revoke revoca una sesión por id. Idempotente.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if err := m.sessions.Revoke(ctx, sessionID); err != nil && !repository.IsNotFound(err) {
		return err
	}
	return nil
}

// RevokeByCredential revoca la sesión de la credencial (logout). Retorna
// false sin error si la credencial no corresponde a ninguna sesión activa.
func (m *Manager) RevokeByCredential(ctx context.Context, raw string) (bool, error) {
	sess, err := m.lookup(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidRotationCredential) {
			return false, nil
		}
		return false, err
	}
	if err := m.sessions.Revoke(ctx, sess.ID); err != nil {
		return false, err
	}
	m.log(ctx, "RevokeByCredential").Debug("session revoked", logger.SessionID(sess.ID))
	return true, nil
}

// RevokeAllForUser revoca todas las sesiones activas del usuario.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := m.sessions.RevokeAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("session: revoke all: %w", err)
	}
	m.log(ctx, "RevokeAllForUser").Info("sessions revoked", logger.UserID(userID), logger.Count(n))
	return n, nil
}

// Validate confirma que la sesión detrás de un access token sigue viva.
func (m *Manager) Validate(ctx context.Context, sessionID string) error {
	sess, err := m.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrSessionRevoked
		}
		return err
	}
	if sess.IsRevoked || sess.Expired(m.now()) {
		return ErrSessionRevoked
	}
	return nil
}

// ListActive lista las sesiones no revocadas ni vencidas del usuario.
func (m *Manager) ListActive(ctx context.Context, userID string) ([]repository.Session, error) {
	all, err := m.sessions.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	out := all[:0]
	for _, s := range all {
		if !s.Expired(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Owns reporta si la sesión sessionID pertenece a userID (revocación desde el listado de dispositivos).
func (m *Manager) Owns(ctx context.Context, userID, sessionID string) (bool, error) {
	sess, err := m.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return sess.UserID == userID, nil
}
