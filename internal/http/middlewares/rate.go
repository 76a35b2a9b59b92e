package middlewares

import (
	"net/http"
	"strconv"
	"time"

	httperrors "github.com/pisciapp/backend/internal/http/errors"
	"github.com/pisciapp/backend/internal/http/helpers"
	"github.com/pisciapp/backend/internal/metrics"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/rate"
)

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPOnlyRateKey limita por IP (no lee el body).
func IPOnlyRateKey(r *http.Request) string { return helpers.ClientIP(r) }

// RateLimitConfig configura un bucket de rate limiting.
type RateLimitConfig struct {
	Bucket  string // etiqueta para métricas y prefijo de la clave (login, register...)
	Limiter rate.Limiter
	KeyFunc RateKeyFunc
}

// WithRateLimit aplica un límite de ventana fija. Si el limiter falla, el
// request pasa (fail-open) y se loguea.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPOnlyRateKey
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.Bucket + "|" + cfg.KeyFunc(r)
			res, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limit error", logger.String("bucket", cfg.Bucket), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if res.ResetIn > 0 {
				resetAt := time.Now().Add(res.ResetIn).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				metrics.RateLimited.WithLabelValues(cfg.Bucket).Inc()
				httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
