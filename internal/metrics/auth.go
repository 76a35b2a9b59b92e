// Package metrics agrupa los contadores de dominio (sesiones, login, 2FA,
// correo, jobs). Vive aparte de internal/http para que session, twofactor y
// jobs puedan instrumentarse sin importar la capa HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionRotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pisci_session_rotations_total",
		Help: "Rotaciones de refresh token por resultado",
	}, []string{"result"}) // ok|invalid|expired|race

	SessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pisci_sessions_issued_total",
		Help: "Sesiones emitidas",
	})

	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pisci_login_attempts_total",
		Help: "Intentos de login por método y resultado",
	}, []string{"method", "result"}) // method: password|google|2fa

	TwoFactorChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pisci_twofactor_checks_total",
		Help: "Verificaciones TOTP por operación y resultado",
	}, []string{"op", "result"})

	EmailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pisci_emails_sent_total",
		Help: "Correos enviados por plantilla y resultado",
	}, []string{"template", "result"})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pisci_job_runs_total",
		Help: "Ejecuciones de jobs de mantenimiento",
	}, []string{"job", "result"})

	JobAffected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pisci_job_affected_total",
		Help: "Filas o usuarios afectados por cada job",
	}, []string{"job"})

	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pisci_job_duration_seconds",
		Help:    "Duración de los jobs de mantenimiento",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"job"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pisci_rate_limited_total",
		Help: "Requests rechazadas por rate limit",
	}, []string{"bucket"})
)

// RegisterAuth registra los colectores en reg (o el default si es nil).
func RegisterAuth(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		SessionRotations, SessionsIssued, LoginAttempts, TwoFactorChecks,
		EmailsSent, JobRuns, JobAffected, JobDuration, RateLimited,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveJob registra resultado, duración y afectados de una corrida.
func ObserveJob(job string, start time.Time, affected int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	JobRuns.WithLabelValues(job, result).Inc()
	JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	if affected > 0 {
		JobAffected.WithLabelValues(job).Add(float64(affected))
	}
}

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
