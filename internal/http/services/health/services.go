// Package health contiene el service de readiness.
package health

import (
	"context"
	"time"

	dto "github.com/pisciapp/backend/internal/http/dto/health"
)

// Pinger es cualquier dependencia que sabe responder si está viva.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps contiene los componentes a chequear.
type Deps struct {
	Store   Pinger
	Cache   Pinger
	Version string
	Timeout time.Duration
}

// HealthService responde el estado de readiness.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Services agrupa todos los services del dominio health.
type Services struct {
	Health HealthService
}

// NewServices crea el agregador de services health.
func NewServices(d Deps) Services {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	return Services{Health: &healthService{deps: d}}
}

type healthService struct {
	deps Deps
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	resp := dto.HealthResponse{
		Status:     "ready",
		Components: map[string]dto.HealthStatus{},
		Version:    s.deps.Version,
		Timestamp:  time.Now().UTC(),
	}
	check := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Components[name] = dto.HealthStatus{Status: "error", Message: err.Error()}
			return
		}
		resp.Components[name] = dto.HealthStatus{Status: "ok"}
	}
	check("store", s.deps.Store)
	check("cache", s.deps.Cache)
	return resp
}
