package jobs

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pisciapp/backend/internal/observability/logger"
)

// Scheduler corre cada job en su intervalo hasta que se cancela el contexto.
type Scheduler struct {
	jobs []Job
	// RunAtStart corre cada job una vez al arrancar, antes del primer tick.
	RunAtStart bool
}

func NewScheduler(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, RunAtStart: true}
}

// Run bloquea hasta que ctx se cancele. Los errores de un job se loguean y
// no detienen a los demás.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Layer("jobs"), logger.Component("scheduler"))
	log.Info("scheduler started", logger.Count(len(s.jobs)))

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		if j.Every <= 0 {
			log.Warn("job without interval skipped", logger.Job(j.Name))
			continue
		}
		j := j
		g.Go(func() error {
			s.loop(gctx, j)
			return nil
		})
	}
	err := g.Wait()
	log.Info("scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	if s.RunAtStart {
		_, _ = run(ctx, j)
	}
	ticker := time.NewTicker(j.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = run(ctx, j)
		}
	}
}
