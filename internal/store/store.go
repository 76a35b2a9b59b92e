// Package store abre el backend de persistencia configurado (Postgres o
// memoria) detrás de los repositorios del dominio.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/store/memory"
	"github.com/pisciapp/backend/internal/store/pg"
)

// Store es lo que el resto de la app necesita del backend.
type Store interface {
	Users() repository.UserRepository
	Sessions() repository.SessionRepository
	Ping(ctx context.Context) error
	Close()
}

// Config selecciona y ajusta el backend.
type Config struct {
	Driver          string // pg | memory
	DSN             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// Open conecta el driver pedido. Con AutoMigrate y Postgres aplica las
// migraciones pendientes antes de devolver el store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	log := logger.From(ctx).With(logger.Component("store"))

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory", "mem":
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil

	case "pg", "postgres", "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store: pg driver requires a dsn")
		}
		s, err := pg.New(ctx, cfg.DSN, pg.Options{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := s.Migrate(ctx); err != nil {
				s.Close()
				return nil, err
			}
			log.Info("migrations applied")
		}
		return s, nil

	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

// PoolOf retorna el pool de Postgres del store, o nil si no usa uno.
func PoolOf(s Store) *pgxpool.Pool {
	if p, ok := s.(interface{ Pool() *pgxpool.Pool }); ok {
		return p.Pool()
	}
	return nil
}
