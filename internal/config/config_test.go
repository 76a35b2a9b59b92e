package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, "refresh_token", c.Auth.Cookie.Name)
	assert.Equal(t, 15*time.Minute, c.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, c.RefreshTTL())
	assert.Equal(t, 15*time.Minute, c.Auth.Verify.TTL)
	assert.Equal(t, 8, c.Security.PasswordPolicy.MinLength)
	assert.True(t, c.Security.PasswordPolicy.RequireSymbol)
	assert.Equal(t, 3, c.Jobs.TrialNoticeDays)
	assert.Equal(t, 30, c.Rate.Refresh.Limit)
	assert.Equal(t, time.Minute, c.Rate.Refresh.WindowDuration())
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  addr: ":9000"
storage:
  driver: pg
  dsn: postgres://localhost/pisci
rate:
  login:
    limit: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("FRONTEND_URL", "https://app.pisciapp.com/")
	t.Setenv("EMAIL_USER", "no-reply@pisciapp.com")
	t.Setenv("GOOGLE_CLIENT_ID", "client-123")
	t.Setenv("RATE_REFRESH_LIMIT", "12")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, "pg", c.Storage.Driver)
	assert.Equal(t, 3, c.Rate.Login.Limit)
	assert.Equal(t, "1m", c.Rate.Login.Window)
	assert.Equal(t, 12, c.Rate.Refresh.Limit)
	assert.Equal(t, "https://app.pisciapp.com", c.Server.FrontendURL)
	assert.Equal(t, "no-reply@pisciapp.com", c.SMTP.Username)
	assert.Equal(t, "no-reply@pisciapp.com", c.SMTP.From)
	assert.True(t, c.Providers.Google.Enabled)
	assert.Equal(t, "client-123", c.Providers.Google.ClientID)
}

func TestValidateRejectsBadValues(t *testing.T) {
	c := Default()
	c.Storage.Driver = "pg"
	assert.Error(t, c.Validate(), "pg sin dsn")

	c = Default()
	c.JWT.AccessTTL = "quince"
	assert.Error(t, c.Validate())

	c = Default()
	c.App.Env = "prod"
	assert.Error(t, c.Validate(), "prod sin signing key")

	c = Default()
	c.Cache.Kind = "redis"
	assert.Error(t, c.Validate(), "redis sin addr")

	assert.NoError(t, Default().Validate())
}

func TestSigningKeyFromFile(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "signing.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("c2VlZA==\n"), 0o600))
	t.Setenv("JWT_SIGNING_KEY_FILE", keyPath)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "c2VlZA==", c.JWT.SigningKey)

	t.Setenv("JWT_SIGNING_KEY", "inline")
	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "inline", c.JWT.SigningKey)

	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("JWT_SIGNING_KEY_FILE", filepath.Join(dir, "missing.key"))
	_, err = Load("")
	assert.Error(t, err)
}
