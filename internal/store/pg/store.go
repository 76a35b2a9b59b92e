// Package pg implementa los repositorios sobre PostgreSQL con pgxpool.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/migrations/postgres"
)

// Options ajusta el pool.
type Options struct {
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

// Store agrupa el pool y los repositorios que lo usan.
type Store struct {
	pool *pgxpool.Pool
	dsn  string
}

// New abre el pool y verifica la conexión.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		pcfg.MinConns = int32(opts.MinConns)
	}
	if opts.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = opts.ConnMaxLifetime
		pcfg.MaxConnIdleTime = opts.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool, dsn: dsn}, nil
}

// Pool expone el pool (métricas).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close es idempotente.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Users() repository.UserRepository { return &userRepo{pool: s.pool} }
func (s *Store) Sessions() repository.SessionRepository { return &sessionRepo{pool: s.pool} }

// ---- migraciones (goose) ----

// MigrateDirection selecciona la operación de goose.
type MigrateDirection string

const (
	MigrateUp     MigrateDirection = "up"
	MigrateDown   MigrateDirection = "down"
	MigrateStatus MigrateDirection = "status"
)

// Migrate aplica las migraciones embebidas contra dsn.
func Migrate(ctx context.Context, dsn string, dir MigrateDirection) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("pg: open: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	switch dir {
	case MigrateUp:
		err = goose.UpContext(ctx, db, ".")
	case MigrateDown:
		err = goose.DownContext(ctx, db, ".")
	case MigrateStatus:
		err = goose.StatusContext(ctx, db, ".")
	default:
		return fmt.Errorf("pg: unknown migrate direction %q", dir)
	}
	if err != nil {
		return fmt.Errorf("pg: migrate %s: %w", dir, err)
	}
	return nil
}

// Migrate aplica las migraciones pendientes sobre el mismo DSN del store.
func (s *Store) Migrate(ctx context.Context) error { return Migrate(ctx, s.dsn, MigrateUp) }

// ---- helpers ----

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		case checkViolation:
			return fmt.Errorf("%w: %s", repository.ErrInvalidInput, pgErr.ConstraintName)
		case "22P02": // invalid_text_representation (uuid mal formado)
			return repository.ErrNotFound
		}
	}
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
