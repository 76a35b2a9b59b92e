// Package bootstrap crea la primera cuenta Admin de una instalación nueva.
package bootstrap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pisciapp/backend/internal/audit"
	"github.com/pisciapp/backend/internal/domain/repository"
	"github.com/pisciapp/backend/internal/observability/logger"
	"github.com/pisciapp/backend/internal/security/password"
)

// AdminConfig describe la cuenta a crear.
type AdminConfig struct {
	Users  repository.UserRepository
	Hasher *password.Hasher
	Policy password.Policy

	Name     string
	Email    string
	Password string
}

var (
	ErrAdminExists  = errors.New("bootstrap: account already exists")
	ErrInvalidInput = errors.New("bootstrap: invalid admin data")
)

// CreateAdmin crea una cuenta Admin verificada y con contraseña. Un Admin no
// pasa por prueba ni cobro (los gates de acceso lo dejan pasar siempre).
func CreateAdmin(ctx context.Context, cfg AdminConfig) (*repository.User, error) {
	email := repository.NormalizeEmail(cfg.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if ok, reasons := cfg.Policy.Validate(cfg.Password); !ok {
		return nil, fmt.Errorf("%w: password (%s)", ErrInvalidInput, strings.Join(reasons, ", "))
	}

	existing, err := cfg.Users.GetByEmail(ctx, email)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("bootstrap: lookup: %w", err)
	}
	if existing != nil {
		return nil, ErrAdminExists
	}

	hash, err := cfg.Hasher.Hash(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: hash: %w", err)
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "Administrador"
	}
	u := &repository.User{
		Email:        email,
		Name:         name,
		PasswordHash: &hash,
		Role:         repository.RoleAdmin,
		IsVerified:   true,
		Preferences:  repository.DefaultPreferences(),
	}
	if err := cfg.Users.Create(ctx, u); err != nil {
		if repository.IsConflict(err) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("bootstrap: create: %w", err)
	}
	audit.Log(ctx, audit.AdminCreated, logger.UserID(u.ID), logger.Email(u.Email))
	return u, nil
}

// PromptCredentials lee correo y contraseña línea por línea de in (stdin en
// el CLI). Los valores ya presentes en cfg no se preguntan.
func PromptCredentials(in io.Reader, out io.Writer, cfg *AdminConfig) error {
	reader := bufio.NewReader(in)
	ask := func(label string) (string, error) {
		fmt.Fprint(out, label)
		s, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && s != "") {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}

	var err error
	if cfg.Email == "" {
		if cfg.Email, err = ask("Correo del admin: "); err != nil {
			return err
		}
	}
	if cfg.Password == "" {
		if cfg.Password, err = ask("Contraseña: "); err != nil {
			return err
		}
		confirm, err := ask("Repetir contraseña: ")
		if err != nil {
			return err
		}
		if confirm != cfg.Password {
			return fmt.Errorf("%w: las contraseñas no coinciden", ErrInvalidInput)
		}
	}
	return nil
}
