package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pisciapp/backend/internal/audit"
	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/metrics"
	"github.com/pisciapp/backend/internal/oauth/google"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/session"
	"github.com/pisciapp/backend/internal/twofactor"
)

type loginService struct {
	deps Deps
}

// Login autentica con correo y contraseña. El orden de los chequeos es
// usuario -> verificado -> tiene contraseña -> contraseña correcta.
func (s *loginService) Login(ctx context.Context, email, password string, meta session.Meta) (res *LoginResult, err error) {
	log := serviceLog(ctx, "auth.login", "Login")
	defer func() { observeLogin(ctx, "password", res, err) }()

	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("login: lookup: %w", err)
	}
	if u.Deleted {
		return nil, ErrUserNotFound
	}
	log = log.With(logger.UserID(u.ID))

	if !u.IsVerified {
		return nil, ErrNotVerified
	}
	if !u.HasPassword() {
		return nil, ErrNoPassword
	}
	if !s.deps.Hasher.Verify(password, *u.PasswordHash) {
		log.Debug("wrong password")
		return nil, ErrWrongPassword
	}

	return s.finish(ctx, u, meta)
}

// FederatedLogin autentica con un ID token de Google. Crea la cuenta si no
// existe, vincula el GoogleID a una cuenta de contraseña con el mismo correo
// y reactiva cuentas eliminadas. El segundo factor aplica igual que en Login.
func (s *loginService) FederatedLogin(ctx context.Context, idToken string, meta session.Meta) (res *LoginResult, err error) {
	log := serviceLog(ctx, "auth.login", "FederatedLogin")
	defer func() { observeLogin(ctx, "google", res, err) }()

	if s.deps.Google == nil {
		return nil, ErrGoogleDisabled
	}
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, ErrMissingFields
	}

	claims, err := s.deps.Google.VerifyIDToken(ctx, idToken)
	if err != nil {
		if errors.Is(err, google.ErrInvalidIDToken) || errors.Is(err, google.ErrEmailNotVerified) {
			log.Debug("google id token rejected", logger.Err(err))
			return nil, ErrInvalidGoogleToken
		}
		return nil, fmt.Errorf("google login: verify: %w", err)
	}

	u, err := s.findOrCreateFederated(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, u, meta)
}

func (s *loginService) findOrCreateFederated(ctx context.Context, c *google.IDClaims) (*repository.User, error) {
	log := serviceLog(ctx, "auth.login", "FederatedLogin")
	email := repository.NormalizeEmail(c.Email)
	now := s.deps.Now().UTC()

	u, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("google login: lookup: %w", err)
	}

	if u == nil {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = "Usuario"
		}
		u = &repository.User{
			Email:       email,
			Name:        name,
			GoogleID:    &c.Sub,
			Role:        repository.RoleCliente,
			IsVerified:  true,
			Preferences: repository.DefaultPreferences(),
		}
		if c.Picture != "" {
			u.Photo = &c.Picture
		}
		startTrial(u, now, s.deps.TrialDays)
		if err := s.deps.Users.Create(ctx, u); err != nil {
			if !repository.IsConflict(err) {
				return nil, fmt.Errorf("google login: create: %w", err)
			}
			// otro request creó la cuenta en paralelo
			return s.deps.Users.GetByEmail(ctx, email)
		}
		log.Info("account created from google", logger.UserID(u.ID))
		return u, nil
	}

	if u.GoogleID != nil && *u.GoogleID != c.Sub {
		log.Warn("google subject mismatch", logger.UserID(u.ID))
		return nil, ErrInvalidGoogleToken
	}

	changed := false
	if u.Deleted {
		u.Deleted = false
		u.PasswordHash = nil
		clearTwoFactor(u)
		startTrial(u, now, s.deps.TrialDays)
		changed = true
		log.Info("account reactivated from google", logger.UserID(u.ID))
	}
	if u.GoogleID == nil {
		u.GoogleID = &c.Sub
		changed = true
	}
	if !u.IsVerified {
		// Google ya verificó el correo. Quien dejó la contraseña nunca probó
		// ser dueño del buzón: esa contraseña y su 2FA no sobreviven.
		if u.HasPassword() || u.TwoFAEnabled || u.TwoFASecret != nil {
			log.Warn("dropping unverified credentials on google link", logger.UserID(u.ID))
		}
		u.PasswordHash = nil
		clearTwoFactor(u)
		u.ClearVerification()
		changed = true
	}
	if u.Photo == nil && c.Picture != "" {
		u.Photo = &c.Picture
		changed = true
	}
	if changed {
		if err := s.deps.Users.Update(ctx, u); err != nil {
			return nil, fmt.Errorf("google login: save: %w", err)
		}
	}
	return u, nil
}

// CompleteTwoFactorLogin es el segundo paso del login cuando la cuenta tiene 2FA.
// Requiere un challenge vivo abierto por Login/FederatedLogin.
func (s *loginService) CompleteTwoFactorLogin(ctx context.Context, userID, code string, meta session.Meta) (res *LoginResult, err error) {
	defer func() { observeLogin(ctx, "2fa", res, err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" || strings.TrimSpace(code) == "" {
		return nil, ErrMissingFields
	}

	if err := s.deps.Challenges.Attempt(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.deps.TwoFactor.VerifyLoginProof(ctx, userID, code); err != nil {
		return nil, err
	}

	u, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("2fa login: load user: %w", err)
	}
	res, err = s.issue(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Challenges.Clear(ctx, userID); err != nil {
		serviceLog(ctx, "auth.login", "CompleteTwoFactorLogin").Warn("challenge clear failed", logger.Err(err))
	}
	return res, nil
}

// finish abre el challenge 2FA o emite la sesión.
func (s *loginService) finish(ctx context.Context, u *repository.User, meta session.Meta) (*LoginResult, error) {
	if u.TwoFAEnabled {
		if err := s.deps.Challenges.Begin(ctx, u.ID); err != nil {
			return nil, fmt.Errorf("login: begin 2fa challenge: %w", err)
		}
		return &LoginResult{Requires2FA: true, UserID: u.ID}, nil
	}
	return s.issue(ctx, u, meta)
}

func (s *loginService) issue(ctx context.Context, u *repository.User, meta session.Meta) (*LoginResult, error) {
	pair, err := s.deps.Sessions.Issue(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, u, meta)
	return &LoginResult{Pair: pair, User: u, UserID: u.ID}, nil
}

// notify manda el aviso de inicio de sesión en segundo plano. Un fallo de
// correo no afecta el login.
func (s *loginService) notify(ctx context.Context, u *repository.User, meta session.Meta) {
	if !s.deps.LoginNotify || !u.Preferences.Notifications || s.deps.Mailer == nil {
		return
	}
	log := serviceLog(ctx, "auth.login", "notify").With(logger.UserID(u.ID))
	to, name, at := u.Email, u.Name, s.deps.Now()
	go func() {
		if err := s.deps.Mailer.SendLoginNotification(to, name, at, meta.IP); err != nil {
			log.Warn("login notification failed", logger.Err(err))
		}
	}()
}

// observeLogin cuenta el intento y deja el evento de auditoría. Los errores
// de infraestructura ya se loguean en su capa y no se auditan.
func observeLogin(ctx context.Context, method string, res *LoginResult, err error) {
	result := loginResult(res, err)
	metrics.LoginAttempts.WithLabelValues(method, result).Inc()

	m := logger.String("method", method)
	switch result {
	case "challenge":
		audit.Log(ctx, audit.LoginChallenged, m, logger.UserID(res.UserID))
	case "ok":
		audit.Log(ctx, audit.LoginSucceeded, m, logger.UserID(res.UserID))
	case "invalid", "rejected":
		audit.Failure(ctx, audit.LoginFailed, err, m)
	}
}

func loginResult(res *LoginResult, err error) string {
	switch {
	case err == nil && res != nil && res.Requires2FA:
		return "challenge"
	case err == nil:
		return "ok"
	case errors.Is(err, ErrWrongPassword), errors.Is(err, ErrUserNotFound),
		errors.Is(err, twofactor.ErrInvalidProof), errors.Is(err, ErrInvalidGoogleToken):
		return "invalid"
	case errors.Is(err, ErrNotVerified), errors.Is(err, ErrNoPassword), errors.Is(err, ErrMissingFields):
		return "rejected"
	case errors.Is(err, twofactor.ErrNoChallenge), errors.Is(err, twofactor.ErrNotEnabled):
		return "rejected"
	default:
		return "error"
	}
}
