// Package twofactor administra el segundo factor TOTP de cada usuario:
// activación en dos pasos, desactivación y verificación en el login.
package twofactor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pisciapp/backend/internal/cache"
	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/metrics"
	"github.com/pisciapp/backend/internal/observability/logger"
	tokens "github.com/pisciapp/backend/internal/security/token"
	"github.com/pisciapp/backend/internal/security/totp"
)

var (
	ErrNoPendingActivation = errors.New("twofactor: no pending activation")
	ErrNotEnabled          = errors.New("twofactor: not enabled")
	ErrInvalidProof        = errors.New("twofactor: invalid proof")
)

// Deps contiene las dependencias del Verifier.
type Deps struct {
	Users       repository.UserRepository
	Cache       cache.Client
	Issuer      string // etiqueta que muestra la app autenticadora
	WindowSteps int
	Now         func() time.Time
}

type Verifier struct {
	users  repository.UserRepository
	cache  cache.Client
	issuer string
	window int
	now    func() time.Time
}

func NewVerifier(d Deps) *Verifier {
	if d.Issuer == "" {
		d.Issuer = "Pisci App"
	}
	if d.WindowSteps <= 0 {
		d.WindowSteps = 1
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Verifier{users: d.Users, cache: d.Cache, issuer: d.Issuer, window: d.WindowSteps, now: d.Now}
}

func (v *Verifier) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("service"), logger.Component("twofactor"), logger.Op(op))
}

// Activate genera un secreto nuevo en el slot pendiente y retorna la URI
// otpauth:// para el QR. Si 2FA ya estaba activo, el secreto vigente sigue
// valiendo hasta que se confirme el nuevo.
func (v *Verifier) Activate(ctx context.Context, userID string) (string, error) {
	u, err := v.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("twofactor: load user: %w", err)
	}
	_, encoded, err := totp.GenerateSecret()
	if err != nil {
		return "", err
	}
	u.TwoFAPendingSecret = &encoded
	if err := v.users.Update(ctx, u); err != nil {
		return "", fmt.Errorf("twofactor: save pending: %w", err)
	}
	v.log(ctx, "Activate").Info("2fa activation started", logger.UserID(userID))
	return totp.OTPAuthURL(v.issuer, u.Email, encoded), nil
}

// Confirm promueve el secreto pendiente a activo si code es válido para él.
func (v *Verifier) Confirm(ctx context.Context, userID, code string) error {
	u, err := v.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("twofactor: load user: %w", err)
	}
	if u.TwoFAPendingSecret == nil || *u.TwoFAPendingSecret == "" {
		return ErrNoPendingActivation
	}
	if err := v.check(ctx, "confirm", userID, *u.TwoFAPendingSecret, code); err != nil {
		return err
	}

	u.TwoFASecret = u.TwoFAPendingSecret
	u.TwoFAPendingSecret = nil
	u.TwoFAEnabled = true
	if err := v.users.Update(ctx, u); err != nil {
		return fmt.Errorf("twofactor: promote: %w", err)
	}
	v.log(ctx, "Confirm").Info("2fa enabled", logger.UserID(userID))
	return nil
}

// Deactivate apaga 2FA tras una prueba válida con el secreto activo.
func (v *Verifier) Deactivate(ctx context.Context, userID, code string) error {
	u, err := v.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("twofactor: load user: %w", err)
	}
	if !u.TwoFAEnabled || u.TwoFASecret == nil {
		return ErrNotEnabled
	}
	if err := v.check(ctx, "deactivate", userID, *u.TwoFASecret, code); err != nil {
		return err
	}

	u.TwoFAEnabled = false
	u.TwoFASecret = nil
	u.TwoFAPendingSecret = nil
	if err := v.users.Update(ctx, u); err != nil {
		return fmt.Errorf("twofactor: disable: %w", err)
	}
	v.log(ctx, "Deactivate").Info("2fa disabled", logger.UserID(userID))
	return nil
}

// VerifyLoginProof valida el código del segundo paso del login.
func (v *Verifier) VerifyLoginProof(ctx context.Context, userID, code string) error {
	u, err := v.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotEnabled
		}
		return fmt.Errorf("twofactor: load user: %w", err)
	}
	if !u.TwoFAEnabled || u.TwoFASecret == nil || u.Deleted {
		return ErrNotEnabled
	}
	return v.check(ctx, "login", userID, *u.TwoFASecret, code)
}

// guardKey arma la clave del replay guard. Va por usuario y por secreto: un
// secreto nuevo (re-enrolamiento) no hereda los contadores del anterior.
func guardKey(kind, userID, secret string) string {
	return "totp:" + kind + ":" + userID + ":" + tokens.SHA256Base64URL(secret)[:16]
}

// check verifica code contra secret y consume el contador aceptado.
// Un contador ya usado (o anterior) del mismo secreto no vuelve a valer.
func (v *Verifier) check(ctx context.Context, op, userID, secret, code string) (err error) {
	defer func() {
		metrics.TwoFactorChecks.WithLabelValues(op, resultLabel(err)).Inc()
	}()

	raw, err := totp.DecodeSecret(secret)
	if err != nil {
		return fmt.Errorf("twofactor: stored secret: %w", err)
	}

	lastKey := guardKey("last", userID, secret)
	var last *int64
	if s, err := v.cache.Get(ctx, lastKey); err == nil {
		if n, perr := strconv.ParseInt(s, 10, 64); perr == nil {
			last = &n
		}
	} else if !cache.IsNotFound(err) {
		return fmt.Errorf("twofactor: replay guard: %w", err)
	}

	ok, counter := totp.Verify(raw, code, v.now(), v.window, last)
	if !ok {
		return ErrInvalidProof
	}

	// SetNX cierra la carrera entre dos requests con el mismo código.
	guardTTL := time.Duration(2*v.window+2) * totp.Period * time.Second
	fresh, err := v.cache.SetNX(ctx, guardKey("used", userID, secret)+":"+strconv.FormatInt(counter, 10), "1", guardTTL)
	if err != nil {
		return fmt.Errorf("twofactor: replay guard: %w", err)
	}
	if !fresh {
		v.log(ctx, "check").Warn("totp code replayed", logger.UserID(userID))
		return ErrInvalidProof
	}
	if err := v.cache.Set(ctx, lastKey, strconv.FormatInt(counter, 10), guardTTL); err != nil {
		return fmt.Errorf("twofactor: replay guard: %w", err)
	}
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidProof):
		return "invalid"
	default:
		return "error"
	}
}
