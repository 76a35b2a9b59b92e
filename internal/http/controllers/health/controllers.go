// Package health contiene los controllers de liveness y readiness.
package health

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	httperrors "github.com/pisciapp/backend/internal/http/errors"
	"github.com/pisciapp/backend/internal/http/helpers"
	svc "github.com/pisciapp/backend/internal/http/services/health"
)

// Controllers agrupa todos los controllers del dominio health.
type Controllers struct {
	Health *HealthController
}

// NewControllers crea el agregador de controllers health.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{Health: &HealthController{service: s.Health}}
}

type HealthController struct {
	service svc.HealthService
}

// Live handles GET /healthz: el proceso responde.
func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz: 503 SERVICE_UNAVAILABLE si store o cache no
// responden. El detalle lista los componentes caídos; la causa solo va al log.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	resp := c.service.Check(r.Context())
	if resp.Status == "ready" {
		helpers.WriteJSON(w, http.StatusOK, resp)
		return
	}

	var (
		down  []string
		cause []error
	)
	for name, st := range resp.Components {
		if st.Status != "ok" {
			down = append(down, name)
			cause = append(cause, fmt.Errorf("%s: %s", name, st.Message))
		}
	}
	sort.Strings(down)
	httperrors.WriteErrorCtx(w, r, httperrors.ErrServiceUnavailable.
		WithDetail(strings.Join(down, ",")).
		WithCause(errors.Join(cause...)))
}
