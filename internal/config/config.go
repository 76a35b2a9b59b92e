package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod | test
		Env      string `yaml:"env"`
		Name     string `yaml:"name"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		FrontendURL        string   `yaml:"frontend_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		ReadTimeout        string   `yaml:"read_timeout"`
		WriteTimeout       string   `yaml:"write_timeout"`
	} `yaml:"server"`

	Storage struct {
		// pg | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		AutoMigrate bool `yaml:"auto_migrate"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Issuer string `yaml:"issuer"`
		// base64 (std o url) de la semilla Ed25519 de 32 bytes. Vacío = clave efímera (solo dev).
		SigningKey string `yaml:"signing_key"`
		// Alternativa a signing_key: archivo generado con `pisci keygen --out`.
		SigningKeyFile string `yaml:"signing_key_file"`
		AccessTTL      string `yaml:"access_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		RefreshTTL string `yaml:"refresh_ttl"`
		Cookie     struct {
			Name     string `yaml:"name"`
			Domain   string `yaml:"domain"`
			Path     string `yaml:"path"`
			SameSite string `yaml:"samesite"`
			Secure   bool   `yaml:"secure"`
		} `yaml:"cookie"`
		Verify struct {
			TTL time.Duration `yaml:"ttl"`
		} `yaml:"verify"`
		Reset struct {
			TTL time.Duration `yaml:"ttl"`
		} `yaml:"reset"`
		Challenge struct {
			TTL         time.Duration `yaml:"ttl"`
			MaxAttempts int           `yaml:"max_attempts"`
		} `yaml:"challenge"`
		TrialDays       int    `yaml:"trial_days"`
		LoginNotify     bool   `yaml:"login_notify"`
		TOTPIssuer      string `yaml:"totp_issuer"`
		TOTPWindowSteps int    `yaml:"totp_window_steps"`
	} `yaml:"auth"`

	Rate struct {
		Enabled  bool    `yaml:"enabled"`
		Login    RateCfg `yaml:"login"`
		Register RateCfg `yaml:"register"`
		Google   RateCfg `yaml:"google"`
		Forgot   RateCfg `yaml:"forgot"`
		TwoFA    RateCfg `yaml:"twofa"`
		Refresh  RateCfg `yaml:"refresh"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		FromName           string `yaml:"from_name"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Email struct {
		// Ruta opcional al logo embebido como cid:logo_pisciapp.
		LogoPath   string `yaml:"logo_path"`
		PlansURL   string `yaml:"plans_url"`
		BillingURL string `yaml:"billing_url"`
	} `yaml:"email"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`

			// Archivo opcional con contraseñas comunes, una por línea.
			BlacklistPath string `yaml:"blacklist_path"`
		} `yaml:"password_policy"`
		Argon2 struct {
			MemoryKiB   uint32 `yaml:"memory_kib"`
			Time        uint32 `yaml:"time"`
			Parallelism uint8  `yaml:"parallelism"`
		} `yaml:"argon2"`
	} `yaml:"security"`

	Providers struct {
		Google struct {
			Enabled  bool   `yaml:"enabled"`
			ClientID string `yaml:"client_id"`
		} `yaml:"google"`
	} `yaml:"providers"`

	Jobs struct {
		Enabled          bool          `yaml:"enabled"`
		UnverifiedEvery  time.Duration `yaml:"unverified_every"`
		NoticesEvery     time.Duration `yaml:"notices_every"`
		SessionRetention time.Duration `yaml:"session_retention"`
		TrialNoticeDays  int           `yaml:"trial_notice_days"`
	} `yaml:"jobs"`
}

// RateCfg describe un límite de ventana fija por IP.
type RateCfg struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

// WindowDuration parsea Window; asume Validate ya corrió.
func (r RateCfg) WindowDuration() time.Duration {
	d, _ := time.ParseDuration(r.Window)
	return d
}

// Load lee el YAML (si path no está vacío y existe), aplica defaults,
// pisa con variables de entorno y valida.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// sin archivo: defaults + env
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.loadSigningKeyFile(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// loadSigningKeyFile completa jwt.signing_key desde archivo si no vino inline.
func (c *Config) loadSigningKeyFile() error {
	path := strings.TrimSpace(c.JWT.SigningKeyFile)
	if path == "" || strings.TrimSpace(c.JWT.SigningKey) != "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: jwt.signing_key_file: %w", err)
	}
	c.JWT.SigningKey = strings.TrimSpace(string(b))
	return nil
}

// Default retorna la configuración por defecto sin leer archivo ni entorno.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "pisci-api"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = "http://localhost:5173"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "5m"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "pisci"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "pisci-api"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.Auth.RefreshTTL == "" {
		c.Auth.RefreshTTL = "168h" // 7d
	}
	if c.Auth.Cookie.Name == "" {
		c.Auth.Cookie.Name = "refresh_token"
	}
	if c.Auth.Cookie.Path == "" {
		c.Auth.Cookie.Path = "/auth"
	}
	if c.Auth.Cookie.SameSite == "" {
		c.Auth.Cookie.SameSite = "Strict"
	}
	if c.Auth.Verify.TTL == 0 {
		c.Auth.Verify.TTL = 15 * time.Minute
	}
	if c.Auth.Reset.TTL == 0 {
		c.Auth.Reset.TTL = 15 * time.Minute
	}
	if c.Auth.Challenge.TTL == 0 {
		c.Auth.Challenge.TTL = 5 * time.Minute
	}
	if c.Auth.Challenge.MaxAttempts == 0 {
		c.Auth.Challenge.MaxAttempts = 5
	}
	if c.Auth.TrialDays == 0 {
		c.Auth.TrialDays = 30
	}
	if c.Auth.TOTPIssuer == "" {
		c.Auth.TOTPIssuer = "Pisci App"
	}
	if c.Auth.TOTPWindowSteps == 0 {
		c.Auth.TOTPWindowSteps = 1
	}

	setRate(&c.Rate.Login, 10, "1m")
	setRate(&c.Rate.Register, 5, "1m")
	setRate(&c.Rate.Google, 10, "1m")
	setRate(&c.Rate.Forgot, 5, "10m")
	setRate(&c.Rate.TwoFA, 10, "1m")
	setRate(&c.Rate.Refresh, 30, "1m")

	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.SMTP.FromName == "" {
		c.SMTP.FromName = "Pisci App"
	}
	if c.Email.PlansURL == "" {
		c.Email.PlansURL = "https://pisciapp.com/planes"
	}
	if c.Email.BillingURL == "" {
		c.Email.BillingURL = "https://pisciapp.com/facturacion"
	}

	pp := &c.Security.PasswordPolicy
	if pp.MinLength == 0 {
		pp.MinLength = 8
		pp.RequireUpper = true
		pp.RequireLower = true
		pp.RequireDigit = true
		pp.RequireSymbol = true
	}
	a := &c.Security.Argon2
	if a.MemoryKiB == 0 {
		a.MemoryKiB = 64 * 1024
	}
	if a.Time == 0 {
		a.Time = 3
	}
	if a.Parallelism == 0 {
		a.Parallelism = 1
	}

	if c.Jobs.UnverifiedEvery == 0 {
		c.Jobs.UnverifiedEvery = time.Hour
	}
	if c.Jobs.NoticesEvery == 0 {
		c.Jobs.NoticesEvery = 24 * time.Hour
	}
	if c.Jobs.SessionRetention == 0 {
		c.Jobs.SessionRetention = 30 * 24 * time.Hour
	}
	if c.Jobs.TrialNoticeDays == 0 {
		c.Jobs.TrialNoticeDays = 3
	}
}

func setRate(r *RateCfg, limit int, window string) {
	if r.Limit == 0 {
		r.Limit = limit
	}
	if r.Window == "" {
		r.Window = window
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// applyEnvOverrides pisa valores del YAML con variables de entorno.
// Los nombres legados del backend (JWT_SECRET, EMAIL_USER, EMAIL_PASS,
// FRONTEND_URL, GOOGLE_CLIENT_ID, DATABASE_URL) también se aceptan.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	} else if v, ok := getEnvStr("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := getEnvStr("FRONTEND_URL"); ok {
		c.Server.FrontendURL = strings.TrimRight(v, "/")
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	} else if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}

	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_KEY"); ok {
		c.JWT.SigningKey = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_KEY_FILE"); ok {
		c.JWT.SigningKeyFile = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}

	if v, ok := getEnvStr("AUTH_REFRESH_TTL"); ok {
		c.Auth.RefreshTTL = v
	}
	if v, ok := getEnvStr("AUTH_COOKIE_DOMAIN"); ok {
		c.Auth.Cookie.Domain = v
	}
	if v, ok := getEnvStr("AUTH_COOKIE_SAMESITE"); ok {
		c.Auth.Cookie.SameSite = v
	}
	if v, ok := getEnvBool("AUTH_COOKIE_SECURE"); ok {
		c.Auth.Cookie.Secure = v
	}
	if v, ok := getEnvDur("AUTH_VERIFY_TTL"); ok {
		c.Auth.Verify.TTL = v
	}
	if v, ok := getEnvDur("AUTH_RESET_TTL"); ok {
		c.Auth.Reset.TTL = v
	}
	if v, ok := getEnvBool("AUTH_LOGIN_NOTIFY"); ok {
		c.Auth.LoginNotify = v
	}

	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvStr("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}
	if v, ok := getEnvInt("RATE_REFRESH_LIMIT"); ok {
		c.Rate.Refresh.Limit = v
	}
	if v, ok := getEnvStr("RATE_REFRESH_WINDOW"); ok {
		c.Rate.Refresh.Window = v
	}
	if v, ok := getEnvInt("RATE_FORGOT_LIMIT"); ok {
		c.Rate.Forgot.Limit = v
	}
	if v, ok := getEnvStr("RATE_FORGOT_WINDOW"); ok {
		c.Rate.Forgot.Window = v
	}

	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	} else if v, ok := getEnvStr("EMAIL_USER"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	} else if v, ok := getEnvStr("EMAIL_PASS"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if v, ok := getEnvStr("EMAIL_LOGO_PATH"); ok {
		c.Email.LogoPath = v
	}

	if v, ok := getEnvInt("SECURITY_PASSWORD_POLICY_MIN_LENGTH"); ok {
		c.Security.PasswordPolicy.MinLength = v
	}
	if v, ok := getEnvStr("SECURITY_PASSWORD_BLACKLIST_PATH"); ok {
		c.Security.PasswordPolicy.BlacklistPath = v
	}

	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID = v
		c.Providers.Google.Enabled = true
	}
	if v, ok := getEnvBool("GOOGLE_ENABLED"); ok {
		c.Providers.Google.Enabled = v
	}

	if v, ok := getEnvBool("JOBS_ENABLED"); ok {
		c.Jobs.Enabled = v
	}
}

// Validate revisa valores críticos y duraciones en string.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "pg", "postgres":
		c.Storage.Driver = "pg"
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("config: storage.dsn requerido para driver pg")
		}
	case "memory":
	default:
		return fmt.Errorf("config: storage.driver desconocido %q", c.Storage.Driver)
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return errors.New("config: cache.redis.addr requerido para cache redis")
		}
	default:
		return fmt.Errorf("config: cache.kind desconocido %q", c.Cache.Kind)
	}

	durations := map[string]string{
		"server.read_timeout":                c.Server.ReadTimeout,
		"server.write_timeout":               c.Server.WriteTimeout,
		"jwt.access_ttl":                     c.JWT.AccessTTL,
		"auth.refresh_ttl":                   c.Auth.RefreshTTL,
		"cache.memory.default_ttl":           c.Cache.Memory.DefaultTTL,
		"storage.postgres.conn_max_lifetime": c.Storage.Postgres.ConnMaxLifetime,
		"rate.login.window":                  c.Rate.Login.Window,
		"rate.register.window":               c.Rate.Register.Window,
		"rate.google.window":                 c.Rate.Google.Window,
		"rate.forgot.window":                 c.Rate.Forgot.Window,
		"rate.twofa.window":                  c.Rate.TwoFA.Window,
		"rate.refresh.window":                c.Rate.Refresh.Window,
	}
	for name, v := range durations {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}

	if c.Security.PasswordPolicy.MinLength < 8 {
		return errors.New("config: security.password_policy.min_length debe ser >= 8")
	}
	if strings.EqualFold(c.App.Env, "prod") && strings.TrimSpace(c.JWT.SigningKey) == "" {
		return errors.New("config: jwt.signing_key requerido en prod")
	}
	if c.Providers.Google.Enabled && strings.TrimSpace(c.Providers.Google.ClientID) == "" {
		return errors.New("config: providers.google.client_id requerido")
	}
	return nil
}

// IsProd indica si el entorno es producción.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

// AccessTTL retorna jwt.access_ttl parseado.
func (c *Config) AccessTTL() time.Duration { return mustDur(c.JWT.AccessTTL, 15*time.Minute) }

// RefreshTTL retorna auth.refresh_ttl parseado.
func (c *Config) RefreshTTL() time.Duration { return mustDur(c.Auth.RefreshTTL, 7*24*time.Hour) }

// Timeouts retorna read/write timeouts del servidor HTTP.
func (c *Config) Timeouts() (read, write time.Duration) {
	return mustDur(c.Server.ReadTimeout, 10*time.Second), mustDur(c.Server.WriteTimeout, 30*time.Second)
}

// CacheDefaultTTL retorna cache.memory.default_ttl parseado.
func (c *Config) CacheDefaultTTL() time.Duration { return mustDur(c.Cache.Memory.DefaultTTL, 5*time.Minute) }

// ConnMaxLifetime retorna storage.postgres.conn_max_lifetime; 0 = sin límite.
func (c *Config) ConnMaxLifetime() time.Duration { return mustDur(c.Storage.Postgres.ConnMaxLifetime, 0) }

func mustDur(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
