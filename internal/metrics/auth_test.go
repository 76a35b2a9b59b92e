package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAuth_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterAuth(reg))
	require.NoError(t, RegisterAuth(reg))
}

func TestObserveJob(t *testing.T) {
	before := testutil.ToFloat64(JobRuns.WithLabelValues("test_job", "error"))
	ObserveJob("test_job", time.Now(), 3, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(JobRuns.WithLabelValues("test_job", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(JobAffected.WithLabelValues("test_job")), 3.0)
}
