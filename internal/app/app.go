// Package app arma la aplicación completa a partir de la configuración:
// storage, cache, seguridad, services, controllers, router y jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pisciapp/backend/internal/cache"
	"github.com/pisciapp/backend/internal/config"
	"github.com/pisciapp/backend/internal/email"
	httpserver "github.com/pisciapp/backend/internal/http"
	authctrl "github.com/pisciapp/backend/internal/http/controllers/auth"
	healthctrl "github.com/pisciapp/backend/internal/http/controllers/health"
	usersctrl "github.com/pisciapp/backend/internal/http/controllers/users"
	"github.com/pisciapp/backend/internal/http/helpers"
	"github.com/pisciapp/backend/internal/http/router"
	authsvc "github.com/pisciapp/backend/internal/http/services/auth"
	healthsvc "github.com/pisciapp/backend/internal/http/services/health"
	userssvc "github.com/pisciapp/backend/internal/http/services/users"
	"github.com/pisciapp/backend/internal/jobs"
	jwtx "github.com/pisciapp/backend/internal/jwt"
	"github.com/pisciapp/backend/internal/oauth/google"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/rate"
	"github.com/pisciapp/backend/internal/security/password"
	"github.com/pisciapp/backend/internal/session"
	"github.com/pisciapp/backend/internal/store"
	"github.com/pisciapp/backend/internal/twofactor"
)

// Version se completa en build con -ldflags.
var Version = "dev"

// App contiene los componentes armados. Close libera storage y cache.
type App struct {
	Config   *config.Config
	Store    store.Store
	Cache    cache.Client
	Issuer   *jwtx.Issuer
	Sessions *session.Manager
	Hasher   *password.Hasher
	Policy   password.Policy
	Mailer   *email.Mailer
	Jobs     *jobs.Runner
	Handler  http.Handler
}

// Option ajusta el armado (tests y CLI).
type Option func(*options)

type options struct {
	sender   email.Sender
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
	noHTTP   bool
}

// WithSender reemplaza el sender de correo configurado.
func WithSender(s email.Sender) Option { return func(o *options) { o.sender = s } }

// WithRegistry usa un registry de Prometheus propio en vez del global.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry, o.gatherer = reg, reg }
}

// WithoutHTTP arma solo storage, seguridad y jobs (comandos del CLI).
func WithoutHTTP() Option { return func(o *options) { o.noHTTP = true } }

// New arma la aplicación. Ante un error libera lo que ya se abrió.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (a *App, err error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	log := logger.From(ctx).With(logger.Component("app"))

	a = &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	// ─── Storage / Cache ───
	a.Store, err = store.Open(ctx, store.Config{
		Driver:          cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxConns:        cfg.Storage.Postgres.MaxConns,
		MinConns:        cfg.Storage.Postgres.MinConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
		AutoMigrate:     cfg.Storage.AutoMigrate,
	})
	if err != nil {
		return nil, err
	}
	a.Cache, err = cache.New(ctx, cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.CacheDefaultTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("app: cache: %w", err)
	}

	// ─── Seguridad ───
	ks, ephemeral, err := jwtx.LoadKeySet(cfg.JWT.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("app: signing key: %w", err)
	}
	if ephemeral {
		log.Warn("jwt.signing_key vacío: usando clave efímera, los tokens no sobreviven un reinicio")
	}
	a.Issuer = jwtx.NewIssuer(cfg.JWT.Issuer, ks, cfg.AccessTTL())
	a.Hasher = password.NewHasher(password.Params{
		Memory:      cfg.Security.Argon2.MemoryKiB,
		Time:        cfg.Security.Argon2.Time,
		Parallelism: cfg.Security.Argon2.Parallelism,
	})
	pp := cfg.Security.PasswordPolicy
	a.Policy = password.Policy{
		MinLength:     pp.MinLength,
		RequireUpper:  pp.RequireUpper,
		RequireLower:  pp.RequireLower,
		RequireDigit:  pp.RequireDigit,
		RequireSymbol: pp.RequireSymbol,
	}
	if pp.BlacklistPath != "" {
		if a.Policy.Blacklist, err = password.LoadBlacklist(pp.BlacklistPath); err != nil {
			return nil, fmt.Errorf("app: password blacklist: %w", err)
		}
		log.Info("password blacklist loaded", logger.Int("entries", a.Policy.Blacklist.Len()))
	}

	sender := o.sender
	if sender == nil {
		sender = newSender(cfg)
	}
	a.Mailer = email.NewMailer(sender, cfg.Email.PlansURL, cfg.Email.BillingURL)

	users := a.Store.Users()
	a.Sessions = session.NewManager(session.Deps{
		Sessions:   a.Store.Sessions(),
		Users:      users,
		Tokens:     a.Issuer,
		Hasher:     a.Hasher,
		RefreshTTL: cfg.RefreshTTL(),
	})
	a.Jobs = jobs.NewRunner(jobs.Deps{
		Users:            users,
		Sessions:         a.Store.Sessions(),
		Mailer:           a.Mailer,
		UnverifiedEvery:  cfg.Jobs.UnverifiedEvery,
		NoticesEvery:     cfg.Jobs.NoticesEvery,
		SessionRetention: cfg.Jobs.SessionRetention,
		TrialNoticeDays:  cfg.Jobs.TrialNoticeDays,
	})
	if o.noHTTP {
		return a, nil
	}

	// ─── Services ───
	verifier := twofactor.NewVerifier(twofactor.Deps{
		Users:       users,
		Cache:       a.Cache,
		Issuer:      cfg.Auth.TOTPIssuer,
		WindowSteps: cfg.Auth.TOTPWindowSteps,
	})
	authDeps := authsvc.Deps{
		Users:       users,
		Sessions:    a.Sessions,
		TwoFactor:   verifier,
		Challenges:  twofactor.NewChallenges(a.Cache, cfg.Auth.Challenge.TTL, cfg.Auth.Challenge.MaxAttempts),
		Tokens:      a.Issuer,
		Hasher:      a.Hasher,
		Policy:      a.Policy,
		Mailer:      a.Mailer,
		FrontendURL: cfg.Server.FrontendURL,
		VerifyTTL:   cfg.Auth.Verify.TTL,
		ResetTTL:    cfg.Auth.Reset.TTL,
		TrialDays:   cfg.Auth.TrialDays,
		LoginNotify: cfg.Auth.LoginNotify,
	}
	if cfg.Providers.Google.Enabled {
		authDeps.Google = google.New(cfg.Providers.Google.ClientID)
	}

	// ─── Metrics ───
	metricsHandler, err := httpserver.RegisterMetrics(httpserver.MetricsConfig{
		Registry: o.registry,
		Gatherer: o.gatherer,
		Pool:     func() *pgxpool.Pool { return store.PoolOf(a.Store) },
	})
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	ck := cfg.Auth.Cookie
	a.Handler = router.New(router.Deps{
		Auth: authctrl.NewControllers(authsvc.NewServices(authDeps), helpers.CookieConfig{
			Name: ck.Name, Domain: ck.Domain, Path: ck.Path, SameSite: ck.SameSite, Secure: ck.Secure,
		}),
		Users: usersctrl.NewController(userssvc.NewService(userssvc.Deps{
			Users: users, Sessions: a.Sessions, TwoFactor: verifier,
		})),
		Health: healthctrl.NewControllers(healthsvc.NewServices(healthsvc.Deps{
			Store: a.Store, Cache: a.Cache, Version: Version,
		})),
		Issuer:         a.Issuer,
		Sessions:       a.Sessions,
		UserRepo:       users,
		Limits:         a.limits(),
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
		Metrics:        httpserver.WithMetrics,
		MetricsHandler: metricsHandler,
	})

	log.Info("app wired",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("google", cfg.Providers.Google.Enabled),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
	)
	return a, nil
}

func newSender(cfg *config.Config) email.Sender {
	if cfg.SMTP.Host == "" {
		logger.L().Warn("smtp.host vacío: los correos solo se loguean", logger.Component("app"))
		return email.LogSender{}
	}
	s := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
	if cfg.SMTP.FromName != "" {
		s.FromName = cfg.SMTP.FromName
	}
	if cfg.SMTP.TLS != "" {
		s.TLSMode = cfg.SMTP.TLS
	}
	s.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
	s.LogoPath = cfg.Email.LogoPath
	return s
}

// limits arma un limiter por endpoint. Con cache redis los contadores son
// compartidos entre réplicas; si no, viven en memoria del proceso.
func (a *App) limits() router.Limits {
	rc := a.Config.Rate
	if !rc.Enabled {
		return router.Limits{}
	}
	var client *rdb.Client
	if r, ok := a.Cache.(interface{ Redis() *rdb.Client }); ok {
		client = r.Redis()
	}
	build := func(name string, c config.RateCfg) rate.Limiter {
		if c.Limit <= 0 {
			return nil
		}
		if client != nil {
			return rate.NewRedisLimiter(client, a.Config.Cache.Redis.Prefix+":rl:"+name, c.Limit, c.WindowDuration())
		}
		return rate.NewMemoryLimiter(c.Limit, c.WindowDuration())
	}
	return router.Limits{
		Login:    build("login", rc.Login),
		Register: build("register", rc.Register),
		Google:   build("google", rc.Google),
		Forgot:   build("forgot", rc.Forgot),
		TwoFA:    build("twofa", rc.TwoFA),
		Refresh:  build("refresh", rc.Refresh),
	}
}

// Run sirve HTTP y, si están habilitados, los jobs, hasta que ctx se cancele.
func (a *App) Run(ctx context.Context) error {
	if a.Handler == nil {
		return errors.New("app: built without http")
	}
	read, write := a.Config.Timeouts()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, httpserver.ServerConfig{
			Addr:         a.Config.Server.Addr,
			ReadTimeout:  read,
			WriteTimeout: write,
		}, a.Handler)
	})
	if a.Config.Jobs.Enabled {
		g.Go(func() error {
			return jobs.NewScheduler(a.Jobs.Jobs()...).Run(gctx)
		})
	}
	return g.Wait()
}

// Close libera storage y cache. Es seguro llamarlo más de una vez.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			logger.L().Warn("cache close", logger.Err(err))
		}
		a.Cache = nil
	}
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
}
