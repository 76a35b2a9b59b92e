package repository

import (
	"context"
	"time"
)

// Session es una fila del ledger de refresh tokens. Solo guarda el hash del secreto.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	IsRevoked        bool
	CreatedAt        time.Time
	ExpiresAt        time.Time
	LastUsedAt       *time.Time
	IPAddress        *string
	UserAgent        *string
}

// Expired reporta si la sesión venció en now.
func (s *Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

// CreateSessionInput contiene los datos para crear una sesión.
type CreateSessionInput struct {
	ID               string // opcional; si vacío el repo genera uno
	UserID           string
	RefreshTokenHash string
	ExpiresAt        time.Time
	IPAddress        string
	UserAgent        string
}

// SessionRepository es el Session Ledger: almacenamiento puro, sin política.
type SessionRepository interface {
	Create(ctx context.Context, in CreateSessionInput) (*Session, error)

	// FindByID retorna ErrNotFound si no existe.
	FindByID(ctx context.Context, id string) (*Session, error)

	// FindActiveByUserID retorna las sesiones no revocadas, más nuevas primero.
	FindActiveByUserID(ctx context.Context, userID string) ([]Session, error)

	// Revoke marca la sesión revocada. Idempotente; nunca des-revoca.
	Revoke(ctx context.Context, id string) error

	// ClaimForRotation revoca atómicamente la sesión solo si seguía activa.
	// Retorna true únicamente para el llamador que efectivamente la revocó.
	ClaimForRotation(ctx context.Context, id string, usedAt time.Time) (bool, error)

	// RevokeAllByUser revoca todas las sesiones activas del usuario.
	RevokeAllByUser(ctx context.Context, userID string) (int, error)

	// DeleteStale borra sesiones revocadas o vencidas creadas antes de before.
	DeleteStale(ctx context.Context, before time.Time) (int, error)
}
