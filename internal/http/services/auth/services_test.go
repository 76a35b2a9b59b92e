package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pisciapp/backend/internal/cache"
	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/email"
	jwtx "github.com/pisciapp/backend/internal/jwt"
	"github.com/pisciapp/backend/internal/oauth/google"
	"github.com/pisciapp/backend/internal/security/password"
	"github.com/pisciapp/backend/internal/session"
	"github.com/pisciapp/backend/internal/store/memory"
	"github.com/pisciapp/backend/internal/twofactor"
)

type fakeGoogle struct {
	claims *google.IDClaims
	err    error
}

func (f *fakeGoogle) VerifyIDToken(context.Context, string) (*google.IDClaims, error) {
	return f.claims, f.err
}

type fixture struct {
	svc    Services
	users  repository.UserRepository
	mail   *email.Recorder
	google *fakeGoogle
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	f := &fixture{
		users:  st.Users(),
		mail:   &email.Recorder{},
		google: &fakeGoogle{},
		now:    time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.now }

	ks, err := jwtx.NewDevEd25519()
	require.NoError(t, err)
	issuer := jwtx.NewIssuer("pisci-test", ks, 15*time.Minute).WithClock(now)
	hasher := password.NewHasher(password.Fast)
	c := cache.NewMemory("t", time.Minute)

	f.svc = NewServices(Deps{
		Users: st.Users(),
		Sessions: session.NewManager(session.Deps{
			Sessions: st.Sessions(), Users: st.Users(), Tokens: issuer, Hasher: hasher, Now: now,
		}),
		TwoFactor:   twofactor.NewVerifier(twofactor.Deps{Users: st.Users(), Cache: c, Now: now}),
		Challenges:  twofactor.NewChallenges(c, 5*time.Minute, 5),
		Google:      f.google,
		Tokens:      issuer,
		Hasher:      hasher,
		Mailer:      email.NewMailer(f.mail, "", ""),
		FrontendURL: "https://pisci.app",
		Now:         now,
	})
	return f
}

func (f *fixture) code(t *testing.T, mail string) string {
	t.Helper()
	u, err := f.users.GetByEmail(context.Background(), mail)
	require.NoError(t, err)
	require.NotNil(t, u.VerificationCode)
	return *u.VerificationCode
}

func TestRegisterStartsTrialUnverified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Register.Register(ctx, " Ana ", "Ana@X.com", "Str0ng!pw")
	require.NoError(t, err)

	u, err := f.users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", u.Email)
	assert.Equal(t, "Ana", u.Name)
	assert.False(t, u.IsVerified)
	assert.True(t, u.TrialPeriod)
	require.NotNil(t, u.BillingDate)
	assert.Equal(t, f.now.AddDate(0, 0, 30), *u.BillingDate)
	assert.Len(t, *u.VerificationCode, 6)
	assert.Len(t, f.mail.Messages(), 1)
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register.Register(ctx, "Ana", "a@x.com", "Str0ng!pw")
	require.NoError(t, err)
	code := f.code(t, "a@x.com")

	f.now = f.now.Add(16 * time.Minute)
	assert.ErrorIs(t, f.svc.Register.VerifyEmail(ctx, "a@x.com", code), ErrInvalidOrExpiredCode)
	assert.ErrorIs(t, f.svc.Register.VerifyEmail(ctx, "nadie@x.com", code), ErrInvalidOrExpiredCode)
}

func TestRegisterReactivatesDeletedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Register.Register(ctx, "Ana", "a@x.com", "Str0ng!pw")
	require.NoError(t, err)
	u, _ := f.users.GetByID(ctx, id)
	u.Deleted = true
	u.TwoFAEnabled = true
	secret := "JBSWY3DPEHPK3PXP"
	u.TwoFASecret = &secret
	gid := "g-old"
	u.GoogleID = &gid
	require.NoError(t, f.users.Update(ctx, u))

	again, err := f.svc.Register.Register(ctx, "Ana Nueva", "a@x.com", "Otr0!Clave")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	u, _ = f.users.GetByID(ctx, id)
	assert.False(t, u.Deleted)
	assert.False(t, u.TwoFAEnabled)
	assert.Nil(t, u.TwoFASecret)
	assert.Nil(t, u.GoogleID)
	assert.Equal(t, "Ana Nueva", u.Name)
}

func TestRegisterFailsWhenEmailCannotBeSent(t *testing.T) {
	f := newFixture(t)
	f.mail.Err = errors.New("smtp down")

	_, err := f.svc.Register.Register(context.Background(), "Ana", "a@x.com", "Str0ng!pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailTaken)
}

func TestLoginFederatedOnlyAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.google.claims = &google.IDClaims{Sub: "g-1", Email: "a@x.com", EmailVerified: true, Name: "Ana"}

	res, err := f.svc.Login.FederatedLogin(ctx, "id-token", session.Meta{})
	require.NoError(t, err)
	require.NotNil(t, res.Pair)
	assert.True(t, res.User.IsVerified)
	assert.True(t, res.User.TrialPeriod)

	_, err = f.svc.Login.Login(ctx, "a@x.com", "Str0ng!pw", session.Meta{})
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestFederatedLoginLinksExistingAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Register.Register(ctx, "Ana", "a@x.com", "Str0ng!pw")
	require.NoError(t, err)
	require.NoError(t, f.svc.Register.VerifyEmail(ctx, "a@x.com", f.code(t, "a@x.com")))

	f.google.claims = &google.IDClaims{Sub: "g-1", Email: "A@x.com", EmailVerified: true}
	res, err := f.svc.Login.FederatedLogin(ctx, "id-token", session.Meta{})
	require.NoError(t, err)
	assert.Equal(t, id, res.User.ID)

	u, _ := f.users.GetByID(ctx, id)
	require.NotNil(t, u.GoogleID)
	assert.Equal(t, "g-1", *u.GoogleID)
	assert.True(t, u.IsVerified)
	assert.True(t, u.HasPassword())

	// otro sub de Google para el mismo correo se rechaza
	f.google.claims = &google.IDClaims{Sub: "g-2", Email: "a@x.com", EmailVerified: true}
	_, err = f.svc.Login.FederatedLogin(ctx, "id-token", session.Meta{})
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)
}

func TestFederatedLoginDropsUnverifiedPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// alguien registra el correo ajeno sin poder verificarlo
	id, err := f.svc.Register.Register(ctx, "Eve", "victim@gmail.com", "Att4cker!pw")
	require.NoError(t, err)

	f.google.claims = &google.IDClaims{Sub: "g-v", Email: "victim@gmail.com", EmailVerified: true}
	res, err := f.svc.Login.FederatedLogin(ctx, "id-token", session.Meta{})
	require.NoError(t, err)
	require.NotNil(t, res.Pair)
	assert.Equal(t, id, res.User.ID)

	u, _ := f.users.GetByID(ctx, id)
	assert.True(t, u.IsVerified)
	assert.False(t, u.HasPassword())
	assert.False(t, u.TwoFAEnabled)
	assert.Nil(t, u.TwoFAPendingSecret)

	_, err = f.svc.Login.Login(ctx, "victim@gmail.com", "Att4cker!pw", session.Meta{})
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestFederatedLoginRejectsBadToken(t *testing.T) {
	f := newFixture(t)
	f.google.err = google.ErrEmailNotVerified

	_, err := f.svc.Login.FederatedLogin(context.Background(), "id-token", session.Meta{})
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)

	_, err = f.svc.Login.FederatedLogin(context.Background(), " ", session.Meta{})
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestFederatedLoginDisabled(t *testing.T) {
	svc := NewServices(Deps{})
	_, err := svc.Login.FederatedLogin(context.Background(), "tok", session.Meta{})
	assert.ErrorIs(t, err, ErrGoogleDisabled)
}

func TestResetPasswordWithWeakPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register.Register(ctx, "Ana", "a@x.com", "Str0ng!pw")
	require.NoError(t, err)
	require.NoError(t, f.svc.Password.ForgotPassword(ctx, "a@x.com"))

	assert.ErrorIs(t, f.svc.Password.ResetPassword(ctx, "basura", "N3w!Passw"), ErrInvalidResetToken)
	assert.ErrorIs(t, f.svc.Password.ForgotPassword(ctx, "nadie@x.com"), ErrUserNotFound)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.NoError(t, f.svc.Session.Logout(ctx, ""))
	assert.NoError(t, f.svc.Session.Logout(ctx, "no-es.valida"))

	_, err := f.svc.Session.Refresh(ctx, "  ", session.Meta{})
	assert.ErrorIs(t, err, ErrMissingRefresh)
}

func TestFederatedLoginRequiresSecondFactor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.google.claims = &google.IDClaims{Sub: "g-1", Email: "a@x.com", EmailVerified: true}

	first, err := f.svc.Login.FederatedLogin(ctx, "id-token", session.Meta{})
	require.NoError(t, err)

	u, err := f.users.GetByID(ctx, first.UserID)
	require.NoError(t, err)
	secret := "JBSWY3DPEHPK3PXP"
	u.TwoFASecret = &secret
	u.TwoFAEnabled = true
	require.NoError(t, f.users.Update(ctx, u))

	res, err := f.svc.Login.FederatedLogin(ctx, "id-token", session.Meta{})
	require.NoError(t, err)
	assert.True(t, res.Requires2FA)
	assert.Nil(t, res.Pair)
	assert.Equal(t, u.ID, res.UserID)
}
