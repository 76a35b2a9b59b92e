package twofactor

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pisciapp/backend/internal/cache"
	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/security/totp"
	"github.com/pisciapp/backend/internal/store/memory"
)

type fixture struct {
	v     *Verifier
	users repository.UserRepository
	user  *repository.User
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	f := &fixture{users: st.Users(), now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.user = &repository.User{Email: "ana@pisci.app", Name: "Ana", Role: repository.RoleCliente, IsVerified: true}
	require.NoError(t, f.users.Create(context.Background(), f.user))
	f.v = NewVerifier(Deps{
		Users: f.users,
		Cache: cache.NewMemory("t", time.Minute),
		Now:   func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) codeFor(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	raw, err := totp.DecodeSecret(secret)
	require.NoError(t, err)
	return totp.Code(raw, at)
}

func (f *fixture) enable(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	uri, err := f.v.Activate(ctx, f.user.ID)
	require.NoError(t, err)
	secret := secretFromURI(t, uri)
	require.NoError(t, f.v.Confirm(ctx, f.user.ID, f.codeFor(t, secret, f.now)))
	return secret
}

func secretFromURI(t *testing.T, uri string) string {
	t.Helper()
	u, err := url.Parse(uri)
	require.NoError(t, err)
	return u.Query().Get("secret")
}

func TestActivate_ReturnsOTPAuthURI(t *testing.T) {
	f := newFixture(t)
	uri, err := f.v.Activate(context.Background(), f.user.ID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	u, _ := url.Parse(uri)
	assert.Equal(t, "Pisci App", u.Query().Get("issuer"))
	assert.Equal(t, "6", u.Query().Get("digits"))
	assert.Equal(t, "30", u.Query().Get("period"))

	stored, _ := f.users.GetByID(context.Background(), f.user.ID)
	require.NotNil(t, stored.TwoFAPendingSecret)
	assert.False(t, stored.TwoFAEnabled, "activar no habilita hasta confirmar")
}

func TestConfirm_WithoutPending(t *testing.T) {
	f := newFixture(t)
	err := f.v.Confirm(context.Background(), f.user.ID, "123456")
	assert.ErrorIs(t, err, ErrNoPendingActivation)
}

func TestConfirm_WrongCodeKeepsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.v.Activate(ctx, f.user.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.v.Confirm(ctx, f.user.ID, "000000"), ErrInvalidProof)
	assert.ErrorIs(t, f.v.Confirm(ctx, f.user.ID, "abc"), ErrInvalidProof)

	stored, _ := f.users.GetByID(ctx, f.user.ID)
	assert.NotNil(t, stored.TwoFAPendingSecret)
	assert.False(t, stored.TwoFAEnabled)
}

func TestConfirm_PromotesPending(t *testing.T) {
	f := newFixture(t)
	secret := f.enable(t)

	stored, _ := f.users.GetByID(context.Background(), f.user.ID)
	assert.True(t, stored.TwoFAEnabled)
	require.NotNil(t, stored.TwoFASecret)
	assert.Equal(t, secret, *stored.TwoFASecret)
	assert.Nil(t, stored.TwoFAPendingSecret)
}

func TestVerifyLoginProof_ReplayRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	secret := f.enable(t)

	// El código de confirmación ya se consumió.
	assert.ErrorIs(t, f.v.VerifyLoginProof(ctx, f.user.ID, f.codeFor(t, secret, f.now)), ErrInvalidProof)

	f.now = f.now.Add(totp.Period * time.Second)
	code := f.codeFor(t, secret, f.now)
	require.NoError(t, f.v.VerifyLoginProof(ctx, f.user.ID, " "+code+" "))
	assert.ErrorIs(t, f.v.VerifyLoginProof(ctx, f.user.ID, code), ErrInvalidProof)
}

func TestReplayGuardIsPerSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.enable(t)

	// login con el secreto vigente y, en el mismo paso, re-enrolamiento
	f.now = f.now.Add(totp.Period * time.Second)
	require.NoError(t, f.v.VerifyLoginProof(ctx, f.user.ID, f.codeFor(t, old, f.now)))

	uri, err := f.v.Activate(ctx, f.user.ID)
	require.NoError(t, err)
	fresh := secretFromURI(t, uri)
	require.NotEqual(t, old, fresh)
	require.NoError(t, f.v.Confirm(ctx, f.user.ID, f.codeFor(t, fresh, f.now)))

	// el código del nuevo secreto ya se consumió en la confirmación
	assert.ErrorIs(t, f.v.VerifyLoginProof(ctx, f.user.ID, f.codeFor(t, fresh, f.now)), ErrInvalidProof)
}

func TestReenableInSameStepAfterDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.enable(t)

	f.now = f.now.Add(totp.Period * time.Second)
	require.NoError(t, f.v.Deactivate(ctx, f.user.ID, f.codeFor(t, first, f.now)))

	uri, err := f.v.Activate(ctx, f.user.ID)
	require.NoError(t, err)
	second := secretFromURI(t, uri)
	require.NoError(t, f.v.Confirm(ctx, f.user.ID, f.codeFor(t, second, f.now)))

	stored, _ := f.users.GetByID(ctx, f.user.ID)
	assert.True(t, stored.TwoFAEnabled)
	require.NotNil(t, stored.TwoFASecret)
	assert.Equal(t, second, *stored.TwoFASecret)
}

func TestVerifyLoginProof_WindowTolerance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	secret := f.enable(t)

	f.now = f.now.Add(5 * time.Minute)
	prev := f.codeFor(t, secret, f.now.Add(-totp.Period*time.Second))
	assert.NoError(t, f.v.VerifyLoginProof(ctx, f.user.ID, prev))

	old := f.codeFor(t, secret, f.now.Add(-3*totp.Period*time.Second))
	assert.ErrorIs(t, f.v.VerifyLoginProof(ctx, f.user.ID, old), ErrInvalidProof)
}

func TestVerifyLoginProof_NotEnabled(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.v.VerifyLoginProof(context.Background(), f.user.ID, "123456"), ErrNotEnabled)
	assert.ErrorIs(t, f.v.VerifyLoginProof(context.Background(), "missing", "123456"), ErrNotEnabled)
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.v.Deactivate(ctx, f.user.ID, "123456"), ErrNotEnabled)

	secret := f.enable(t)
	f.now = f.now.Add(time.Minute)
	assert.ErrorIs(t, f.v.Deactivate(ctx, f.user.ID, "999999"), ErrInvalidProof)
	require.NoError(t, f.v.Deactivate(ctx, f.user.ID, f.codeFor(t, secret, f.now)))

	stored, _ := f.users.GetByID(ctx, f.user.ID)
	assert.False(t, stored.TwoFAEnabled)
	assert.Nil(t, stored.TwoFASecret)
}

func TestChallenges_AttemptsBounded(t *testing.T) {
	ctx := context.Background()
	c := NewChallenges(cache.NewMemory("", time.Minute), time.Minute, 2)

	assert.ErrorIs(t, c.Attempt(ctx, "u1"), ErrNoChallenge)

	require.NoError(t, c.Begin(ctx, "u1"))
	assert.NoError(t, c.Attempt(ctx, "u1"))
	assert.NoError(t, c.Attempt(ctx, "u1"))
	assert.ErrorIs(t, c.Attempt(ctx, "u1"), ErrNoChallenge)
	// Agotado: queda descartado.
	assert.ErrorIs(t, c.Attempt(ctx, "u1"), ErrNoChallenge)

	require.NoError(t, c.Begin(ctx, "u1"))
	assert.NoError(t, c.Attempt(ctx, "u1"))
	require.NoError(t, c.Clear(ctx, "u1"))
	assert.ErrorIs(t, c.Attempt(ctx, "u1"), ErrNoChallenge)
}
