// Package jobs contiene los barridos de mantenimiento: cuentas sin verificar,
// avisos de fin de prueba y de pago fallido, y limpieza del ledger de sesiones.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/email"
	"github.com/pisciapp/backend/internal/metrics"
	"github.com/pisciapp/backend/internal/observability/logger"
)

// Nombres de los jobs (label de métricas y argumento del CLI).
const (
	SoftDeleteUnverified = "soft_delete_unverified"
	TrialEndingNotice    = "trial_ending_notice"
	GraceReminder        = "grace_reminder"
	PurgeSessions        = "purge_sessions"
)

// Job es una tarea que corre periódicamente. Run retorna cuántas filas o
// usuarios afectó.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) (int, error)
}

// Deps contiene lo que necesitan los barridos.
type Deps struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Mailer   *email.Mailer

	UnverifiedEvery  time.Duration
	NoticesEvery     time.Duration
	SessionRetention time.Duration
	TrialNoticeDays  int
	Now              func() time.Time
}

// Runner arma los jobs a partir de Deps.
type Runner struct {
	deps Deps
}

func NewRunner(d Deps) *Runner {
	if d.UnverifiedEvery <= 0 {
		d.UnverifiedEvery = time.Hour
	}
	if d.NoticesEvery <= 0 {
		d.NoticesEvery = 24 * time.Hour
	}
	if d.SessionRetention <= 0 {
		d.SessionRetention = 30 * 24 * time.Hour
	}
	if d.TrialNoticeDays <= 0 {
		d.TrialNoticeDays = 3
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Runner{deps: d}
}

// Jobs retorna todos los barridos con su intervalo.
func (r *Runner) Jobs() []Job {
	return []Job{
		{Name: SoftDeleteUnverified, Every: r.deps.UnverifiedEvery, Run: r.softDeleteUnverified},
		{Name: TrialEndingNotice, Every: r.deps.NoticesEvery, Run: r.trialEndingNotice},
		{Name: GraceReminder, Every: r.deps.NoticesEvery, Run: r.graceReminder},
		{Name: PurgeSessions, Every: r.deps.NoticesEvery, Run: r.purgeSessions},
	}
}

// ErrUnknownJob lo retorna RunOnce con un nombre que no existe.
var ErrUnknownJob = errors.New("jobs: unknown job")

// RunOnce corre un job por nombre (o todos si name es vacío) y reporta los
// afectados por job.
func (r *Runner) RunOnce(ctx context.Context, name string) (map[string]int, error) {
	out := map[string]int{}
	var errs []error
	found := false
	for _, j := range r.Jobs() {
		if name != "" && j.Name != name {
			continue
		}
		found = true
		n, err := run(ctx, j)
		out[j.Name] = n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", j.Name, err))
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return out, errors.Join(errs...)
}

// run ejecuta una corrida con log y métricas.
func run(ctx context.Context, j Job) (int, error) {
	log := logger.From(ctx).With(logger.Layer("jobs"), logger.Job(j.Name))
	start := time.Now()
	n, err := j.Run(ctx)
	metrics.ObserveJob(j.Name, start, n, err)
	if err != nil {
		log.Error("job failed", logger.Count(n), logger.Err(err), logger.Duration(time.Since(start)))
		return n, err
	}
	log.Info("job done", logger.Count(n), logger.Duration(time.Since(start)))
	return n, nil
}

func (r *Runner) softDeleteUnverified(ctx context.Context) (int, error) {
	return r.deps.Users.SoftDeleteExpiredUnverified(ctx, r.deps.Now().UTC())
}

// trialEndingNotice avisa a las cuentas en prueba cuyo cobro cae dentro del
// día que está a TrialNoticeDays de hoy. Corriendo una vez por día cada
// usuario recibe un solo aviso.
func (r *Runner) trialEndingNotice(ctx context.Context) (int, error) {
	now := r.deps.Now().UTC()
	from := now.AddDate(0, 0, r.deps.TrialNoticeDays)
	to := from.Add(r.deps.NoticesEvery)

	users, err := r.deps.Users.ListTrialEndingBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return r.notify(ctx, TrialEndingNotice, users, func(u repository.User) error {
		return r.deps.Mailer.SendTrialEnding(u.Email, u.Name, r.deps.TrialNoticeDays)
	})
}

func (r *Runner) graceReminder(ctx context.Context) (int, error) {
	users, err := r.deps.Users.ListInGracePeriod(ctx, r.deps.Now().UTC())
	if err != nil {
		return 0, err
	}
	return r.notify(ctx, GraceReminder, users, func(u repository.User) error {
		return r.deps.Mailer.SendPaymentFailed(u.Email, u.Name, *u.GraceExpiresAt)
	})
}

// notify manda un correo por usuario. Un envío fallido no corta el resto;
// se cuentan solo los enviados y se retorna el primer error.
func (r *Runner) notify(ctx context.Context, job string, users []repository.User, send func(repository.User) error) (int, error) {
	log := logger.From(ctx).With(logger.Layer("jobs"), logger.Job(job))
	sent := 0
	var first error
	for _, u := range users {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := send(u); err != nil {
			log.Warn("notice not sent", logger.UserID(u.ID), logger.Err(err))
			if first == nil {
				first = err
			}
			continue
		}
		sent++
	}
	return sent, first
}

func (r *Runner) purgeSessions(ctx context.Context) (int, error) {
	return r.deps.Sessions.DeleteStale(ctx, r.deps.Now().UTC().Add(-r.deps.SessionRetention))
}
