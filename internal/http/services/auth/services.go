package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/email"
	jwtx "github.com/pisciapp/backend/internal/jwt"
	"github.com/pisciapp/backend/internal/oauth/google"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/security/password"
	"github.com/pisciapp/backend/internal/session"
	"github.com/pisciapp/backend/internal/twofactor"
)

// GoogleVerifier valida ID tokens de Google. nil en Deps = login con Google apagado.
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*google.IDClaims, error)
}

// Deps contiene las dependencias compartidas por los services de auth.
type Deps struct {
	Users      repository.UserRepository
	Sessions   *session.Manager
	TwoFactor  *twofactor.Verifier
	Challenges *twofactor.Challenges
	Google     GoogleVerifier
	Tokens     *jwtx.Issuer
	Hasher     *password.Hasher
	Policy     password.Policy
	Mailer     *email.Mailer

	FrontendURL string
	VerifyTTL   time.Duration
	ResetTTL    time.Duration
	TrialDays   int
	LoginNotify bool
	Now         func() time.Time
}

// Services agrupa todos los services del dominio auth.
type Services struct {
	Register RegisterService
	Login    LoginService
	Session  SessionService
	Password PasswordService
}

// NewServices aplica defaults a d y crea el agregador.
func NewServices(d Deps) Services {
	if d.VerifyTTL <= 0 {
		d.VerifyTTL = 15 * time.Minute
	}
	if d.ResetTTL <= 0 {
		d.ResetTTL = 15 * time.Minute
	}
	if d.TrialDays <= 0 {
		d.TrialDays = 30
	}
	if d.Policy.MinLength == 0 {
		d.Policy = password.Strong
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return Services{
		Register: &registerService{deps: d},
		Login:    &loginService{deps: d},
		Session:  &sessionService{deps: d},
		Password: &passwordService{deps: d},
	}
}

func serviceLog(ctx context.Context, component, op string) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(component),
		logger.Op(op),
	)
}

// startTrial reinicia el periodo de prueba (alta o reactivación).
func startTrial(u *repository.User, now time.Time, days int) {
	billing := now.AddDate(0, 0, days)
	u.TrialPeriod = true
	u.BillingDate = &billing
	u.GracePeriod = false
	u.GraceExpiresAt = nil
}

// clearTwoFactor apaga 2FA (una cuenta reactivada no hereda el segundo factor).
func clearTwoFactor(u *repository.User) {
	u.TwoFAEnabled = false
	u.TwoFASecret = nil
	u.TwoFAPendingSecret = nil
}
