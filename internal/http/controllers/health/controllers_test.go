package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httperrors "github.com/pisciapp/backend/internal/http/errors"
	svc "github.com/pisciapp/backend/internal/http/services/health"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func ready(t *testing.T, d svc.Deps) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	ctrl := NewControllers(svc.NewServices(d))
	rec := httptest.NewRecorder()
	ctrl.Health.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestReadyOK(t *testing.T) {
	rec, body := ready(t, svc.Deps{Store: pinger{}, Cache: pinger{}, Version: "1.2.3"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestReadyUnavailable(t *testing.T) {
	rec, body := ready(t, svc.Deps{
		Store: pinger{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")},
		Cache: pinger{err: errors.New("redis: i/o timeout")},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, httperrors.ErrServiceUnavailable.Code, body["code"])
	assert.Equal(t, "cache,store", body["detail"])
	// la dirección interna no sale en la respuesta
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestReadyOnlyFailingComponentListed(t *testing.T) {
	rec, body := ready(t, svc.Deps{Store: pinger{}, Cache: pinger{err: errors.New("down")}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "cache", body["detail"])
}
