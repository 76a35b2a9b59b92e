package pg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pisciapp/backend/internal/domain/repository"
)

type userRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `
	id, correo, password_hash, google_id, nombre, foto_perfil, telefono, rol,
	is_verified, verification_code, verification_expires_at, eliminado,
	periodo_prueba, periodo_gracia, periodo_gracia_expira, fecha_cobro,
	twofa_secret, twofa_pending_secret, twofa_enabled,
	pref_notificaciones, pref_tema, pref_idioma, created_at, updated_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var (
		u    repository.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.GoogleID, &u.Name, &u.Photo, &u.Phone, &role,
		&u.IsVerified, &u.VerificationCode, &u.VerificationExpiresAt, &u.Deleted,
		&u.TrialPeriod, &u.GracePeriod, &u.GraceExpiresAt, &u.BillingDate,
		&u.TwoFASecret, &u.TwoFAPendingSecret, &u.TwoFAEnabled,
		&u.Preferences.Notifications, &u.Preferences.Theme, &u.Preferences.Locale,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	u.Role = repository.Role(role)
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	q := `SELECT ` + userColumns + ` FROM usuarios WHERE correo = $1`
	return scanUser(r.pool.QueryRow(ctx, q, repository.NormalizeEmail(email)))
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM usuarios WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, uid))
}

func (r *userRepo) Create(ctx context.Context, u *repository.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Email = repository.NormalizeEmail(u.Email)

	const q = `
		INSERT INTO usuarios (` + userColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`
	_, err := r.pool.Exec(ctx, q, userArgs(u)...)
	return mapErr(err)
}

func (r *userRepo) Update(ctx context.Context, u *repository.User) error {
	u.UpdatedAt = time.Now().UTC()
	u.Email = repository.NormalizeEmail(u.Email)

	const q = `
		UPDATE usuarios SET
			correo = $2, password_hash = $3, google_id = $4, nombre = $5, foto_perfil = $6,
			telefono = $7, rol = $8, is_verified = $9, verification_code = $10,
			verification_expires_at = $11, eliminado = $12, periodo_prueba = $13,
			periodo_gracia = $14, periodo_gracia_expira = $15, fecha_cobro = $16,
			twofa_secret = $17, twofa_pending_secret = $18, twofa_enabled = $19,
			pref_notificaciones = $20, pref_tema = $21, pref_idioma = $22, updated_at = $23
		WHERE id = $1`
	args := userArgs(u)
	args = append(args[:22], u.UpdatedAt)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func userArgs(u *repository.User) []any {
	return []any{
		u.ID, u.Email, u.PasswordHash, u.GoogleID, u.Name, u.Photo, u.Phone, string(u.Role),
		u.IsVerified, u.VerificationCode, u.VerificationExpiresAt, u.Deleted,
		u.TrialPeriod, u.GracePeriod, u.GraceExpiresAt, u.BillingDate,
		u.TwoFASecret, u.TwoFAPendingSecret, u.TwoFAEnabled,
		u.Preferences.Notifications, u.Preferences.Theme, u.Preferences.Locale,
		u.CreatedAt, u.UpdatedAt,
	}
}

func (r *userRepo) SoftDeleteExpiredUnverified(ctx context.Context, now time.Time) (int, error) {
	const q = `
		UPDATE usuarios SET eliminado = TRUE, updated_at = NOW()
		WHERE NOT is_verified AND NOT eliminado AND verification_expires_at < $1`
	tag, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *userRepo) ListTrialEndingBetween(ctx context.Context, from, to time.Time) ([]repository.User, error) {
	q := `SELECT ` + userColumns + ` FROM usuarios
		WHERE periodo_prueba AND NOT eliminado AND fecha_cobro >= $1 AND fecha_cobro < $2
		ORDER BY fecha_cobro`
	return r.list(ctx, q, from, to)
}

func (r *userRepo) ListInGracePeriod(ctx context.Context, now time.Time) ([]repository.User, error) {
	q := `SELECT ` + userColumns + ` FROM usuarios
		WHERE periodo_gracia AND NOT eliminado AND periodo_gracia_expira > $1
		ORDER BY periodo_gracia_expira`
	return r.list(ctx, q, now)
}

func (r *userRepo) list(ctx context.Context, q string, args ...any) ([]repository.User, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []repository.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
