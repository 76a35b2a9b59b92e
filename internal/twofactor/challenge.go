package twofactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pisciapp/backend/internal/cache"
)

// ErrNoChallenge: no hay un login pendiente de segundo factor para el usuario,
// expiró o agotó los intentos.
var ErrNoChallenge = errors.New("twofactor: no login challenge")

// Challenges guarda el estado "contraseña ok, falta el código" entre los dos
// pasos del login.
type Challenges struct {
	cache       cache.Client
	ttl         time.Duration
	maxAttempts int64
}

func NewChallenges(c cache.Client, ttl time.Duration, maxAttempts int) *Challenges {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Challenges{cache: c, ttl: ttl, maxAttempts: int64(maxAttempts)}
}

func challengeKey(uid string) string { return "2fa:chal:" + uid }
func attemptsKey(uid string) string  { return "2fa:att:" + uid }

// Begin abre (o reinicia) el challenge del usuario.
func (c *Challenges) Begin(ctx context.Context, userID string) error {
	if err := c.cache.Delete(ctx, attemptsKey(userID)); err != nil {
		return fmt.Errorf("twofactor: reset attempts: %w", err)
	}
	return c.cache.Set(ctx, challengeKey(userID), "1", c.ttl)
}

// Attempt consume un intento. Retorna ErrNoChallenge si no hay challenge vivo
// o si este intento supera el máximo (en ese caso el challenge se descarta).
func (c *Challenges) Attempt(ctx context.Context, userID string) error {
	if _, err := c.cache.Get(ctx, challengeKey(userID)); err != nil {
		if cache.IsNotFound(err) {
			return ErrNoChallenge
		}
		return err
	}
	n, err := c.cache.Incr(ctx, attemptsKey(userID), c.ttl)
	if err != nil {
		return err
	}
	if n > c.maxAttempts {
		_ = c.Clear(ctx, userID)
		return ErrNoChallenge
	}
	return nil
}

// Clear cierra el challenge (login completado o abortado).
func (c *Challenges) Clear(ctx context.Context, userID string) error {
	return c.cache.Delete(ctx, challengeKey(userID), attemptsKey(userID))
}
