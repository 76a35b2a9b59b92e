// Package cache provee un almacén clave/valor con TTL para estado efímero
// de autenticación: challenges de 2FA, guard de replay TOTP y similares.
//
// Soporta:
//   - Memory (in-process, go-cache; desarrollo, tests y despliegue de una instancia)
//   - Redis (go-redis; cuando el estado debe sobrevivir reinicios)
package cache

import (
	"context"
	"errors"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor. Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX guarda solo si la key no existe. Retorna true si la escribió.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Incr incrementa un contador; el TTL se aplica solo al crearlo.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete elimina una o más keys. No falla si no existen.
	Delete(ctx context.Context, keys ...string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close libera recursos.
	Close() error
}

// Config para crear un cliente.
type Config struct {
	Kind       string // "memory" | "redis"
	Addr       string
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

// ErrNotFound se retorna cuando la key no existe.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// New crea un cliente de cache según la configuración.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(ctx, cfg)
	default:
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
