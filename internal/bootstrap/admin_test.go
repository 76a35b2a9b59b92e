package bootstrap

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/security/password"
	"github.com/pisciapp/backend/internal/store/memory"
)

func adminConfig() AdminConfig {
	return AdminConfig{
		Users:    memory.NewUserRepo(),
		Hasher:   password.NewHasher(password.Fast),
		Policy:   password.Strong,
		Email:    " Root@Pisci.app ",
		Password: "Adm1n!pass",
	}
}

func TestCreateAdmin(t *testing.T) {
	cfg := adminConfig()
	u, err := CreateAdmin(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "root@pisci.app", u.Email)
	assert.Equal(t, repository.RoleAdmin, u.Role)
	assert.True(t, u.IsVerified)
	assert.True(t, cfg.Hasher.Verify("Adm1n!pass", *u.PasswordHash))

	_, err = CreateAdmin(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrAdminExists)
}

func TestCreateAdminRejectsWeakPassword(t *testing.T) {
	cfg := adminConfig()
	cfg.Password = "short"
	_, err := CreateAdmin(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPromptCredentials(t *testing.T) {
	cfg := AdminConfig{}
	in := strings.NewReader("root@pisci.app\nAdm1n!pass\nAdm1n!pass\n")
	require.NoError(t, PromptCredentials(in, &bytes.Buffer{}, &cfg))
	assert.Equal(t, "root@pisci.app", cfg.Email)
	assert.Equal(t, "Adm1n!pass", cfg.Password)

	cfg = AdminConfig{Email: "root@pisci.app"}
	in = strings.NewReader("Adm1n!pass\notra\n")
	assert.ErrorIs(t, PromptCredentials(in, &bytes.Buffer{}, &cfg), ErrInvalidInput)
}
