package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/email"
	"github.com/pisciapp/backend/internal/store/memory"
)

type fixture struct {
	store  *memory.Store
	mail   *email.Recorder
	runner *Runner
	now    time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), mail: &email.Recorder{}, now: now}
	f.runner = NewRunner(Deps{
		Users:    f.store.Users(),
		Sessions: f.store.Sessions(),
		Mailer:   email.NewMailer(f.mail, "https://pisci.app/planes", "https://pisci.app/cobro"),
		Now:      func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) user(t *testing.T, mail string, mutate func(u *repository.User)) *repository.User {
	t.Helper()
	u := &repository.User{Email: mail, Name: "Ana", Role: repository.RoleCliente, IsVerified: true,
		Preferences: repository.DefaultPreferences()}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func TestSoftDeleteUnverified(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	ctx := context.Background()

	stale := f.user(t, "stale@x.com", func(u *repository.User) {
		u.IsVerified = false
		u.SetVerification("123456", now.Add(-time.Minute))
	})
	fresh := f.user(t, "fresh@x.com", func(u *repository.User) {
		u.IsVerified = false
		u.SetVerification("123456", now.Add(time.Minute))
	})
	verified := f.user(t, "ok@x.com", nil)

	out, err := f.runner.RunOnce(ctx, SoftDeleteUnverified)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{SoftDeleteUnverified: 1}, out)

	for id, wantDeleted := range map[string]bool{stale.ID: true, fresh.ID: false, verified.ID: false} {
		u, err := f.store.Users().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, wantDeleted, u.Deleted, u.Email)
	}
}

func TestTrialEndingNotice(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	inThree := now.AddDate(0, 0, 3).Add(2 * time.Hour)
	inTen := now.AddDate(0, 0, 10)
	f.user(t, "soon@x.com", func(u *repository.User) { u.TrialPeriod = true; u.BillingDate = &inThree })
	f.user(t, "later@x.com", func(u *repository.User) { u.TrialPeriod = true; u.BillingDate = &inThree; u.Deleted = true })
	f.user(t, "far@x.com", func(u *repository.User) { u.TrialPeriod = true; u.BillingDate = &inTen })
	f.user(t, "paid@x.com", func(u *repository.User) { u.BillingDate = &inThree })

	out, err := f.runner.RunOnce(context.Background(), TrialEndingNotice)
	require.NoError(t, err)
	assert.Equal(t, 1, out[TrialEndingNotice])

	msgs := f.mail.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "soon@x.com", msgs[0].To)
	assert.Contains(t, msgs[0].Text, "https://pisci.app/planes")
}

func TestGraceReminder(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	until := now.AddDate(0, 0, 5)
	expired := now.Add(-time.Hour)
	f.user(t, "grace@x.com", func(u *repository.User) { u.GracePeriod = true; u.GraceExpiresAt = &until })
	f.user(t, "gone@x.com", func(u *repository.User) { u.GracePeriod = true; u.GraceExpiresAt = &expired })

	out, err := f.runner.RunOnce(context.Background(), GraceReminder)
	require.NoError(t, err)
	assert.Equal(t, 1, out[GraceReminder])

	msg, ok := f.mail.Last("grace@x.com")
	require.True(t, ok)
	assert.Contains(t, msg.Text, "06/07/2026")
}

func TestNoticeContinuesAfterSendFailure(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	until := now.AddDate(0, 0, 5)
	f.user(t, "a@x.com", func(u *repository.User) { u.GracePeriod = true; u.GraceExpiresAt = &until })
	f.user(t, "b@x.com", func(u *repository.User) { u.GracePeriod = true; u.GraceExpiresAt = &until })
	f.mail.Err = errors.New("smtp down")

	out, err := f.runner.RunOnce(context.Background(), GraceReminder)
	require.Error(t, err)
	assert.Equal(t, 0, out[GraceReminder])
}

func TestPurgeSessions(t *testing.T) {
	f := newFixture(t, time.Now().Add(31*24*time.Hour))
	ctx := context.Background()
	u := f.user(t, "a@x.com", nil)
	sessions := f.store.Sessions()

	revoked, err := sessions.Create(ctx, repository.CreateSessionInput{UserID: u.ID, RefreshTokenHash: "h", ExpiresAt: time.Now().Add(90 * 24 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, sessions.Revoke(ctx, revoked.ID))
	live, err := sessions.Create(ctx, repository.CreateSessionInput{UserID: u.ID, RefreshTokenHash: "h", ExpiresAt: time.Now().Add(90 * 24 * time.Hour)})
	require.NoError(t, err)

	out, err := f.runner.RunOnce(ctx, PurgeSessions)
	require.NoError(t, err)
	assert.Equal(t, 1, out[PurgeSessions])

	_, err = sessions.FindByID(ctx, revoked.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = sessions.FindByID(ctx, live.ID)
	assert.NoError(t, err)
}

func TestRunOnceAllAndUnknown(t *testing.T) {
	f := newFixture(t, time.Now())

	out, err := f.runner.RunOnce(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, out, 4)

	_, err = f.runner.RunOnce(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	var runs atomic.Int32
	job := Job{Name: "tick", Every: 10 * time.Millisecond, Run: func(context.Context) (int, error) {
		runs.Add(1)
		return 0, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewScheduler(job).Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
