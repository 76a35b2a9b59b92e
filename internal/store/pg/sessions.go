package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pisciapp/backend/internal/domain/repository"
)

type sessionRepo struct {
	pool *pgxpool.Pool
}

const sessionColumns = `id, user_id, refresh_token_hash, is_revoked, created_at, expires_at, last_used_at, ip_address, user_agent`

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.IsRevoked,
		&s.CreatedAt, &s.ExpiresAt, &s.LastUsedAt, &s.IPAddress, &s.UserAgent)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *sessionRepo) Create(ctx context.Context, in repository.CreateSessionInput) (*repository.Session, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	const q = `
		INSERT INTO sesiones (id, user_id, refresh_token_hash, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, q,
		id, in.UserID, in.RefreshTokenHash, in.ExpiresAt,
		nullIfEmpty(in.IPAddress), nullIfEmpty(in.UserAgent),
	))
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*repository.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	const q = `SELECT ` + sessionColumns + ` FROM sesiones WHERE id = $1`
	return scanSession(r.pool.QueryRow(ctx, q, id))
}

func (r *sessionRepo) FindActiveByUserID(ctx context.Context, userID string) ([]repository.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sesiones
		WHERE user_id = $1 AND NOT is_revoked ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) Revoke(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}
	_, err := r.pool.Exec(ctx, `UPDATE sesiones SET is_revoked = TRUE WHERE id = $1 AND NOT is_revoked`, id)
	return mapErr(err)
}

// ClaimForRotation: el UPDATE condicional serializa a los concurrentes en el
// lock de fila; solo el primero ve is_revoked = false y afecta una fila.
func (r *sessionRepo) ClaimForRotation(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	const q = `UPDATE sesiones SET is_revoked = TRUE, last_used_at = $2 WHERE id = $1 AND NOT is_revoked`
	tag, err := r.pool.Exec(ctx, q, id, usedAt)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *sessionRepo) RevokeAllByUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE sesiones SET is_revoked = TRUE WHERE user_id = $1 AND NOT is_revoked`, userID)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *sessionRepo) DeleteStale(ctx context.Context, before time.Time) (int, error) {
	const q = `DELETE FROM sesiones WHERE created_at < $1 AND (is_revoked OR expires_at < NOW())`
	tag, err := r.pool.Exec(ctx, q, before)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}
