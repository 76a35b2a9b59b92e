package repository

import (
	"context"
	"strings"
	"time"
)

// Role del usuario dentro de la app.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleCliente    Role = "Cliente"
	RoleTrabajador Role = "Trabajador"
)

// Valid reporta si r es uno de los roles conocidos.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCliente, RoleTrabajador:
		return true
	}
	return false
}

// Preferences del usuario.
type Preferences struct {
	Notifications bool   `json:"notificaciones"`
	Theme         string `json:"tema"`
	Locale        string `json:"idioma"`
}

// DefaultPreferences para cuentas nuevas.
func DefaultPreferences() Preferences {
	return Preferences{Notifications: true, Theme: "light", Locale: "es"}
}

// User es la cuenta persistida.
type User struct {
	ID           string
	Email        string
	PasswordHash *string // nil = cuenta solo federada
	GoogleID     *string
	Name         string
	Photo        *string
	Phone        *string
	Role         Role

	IsVerified            bool
	VerificationCode      *string
	VerificationExpiresAt *time.Time

	Deleted bool

	TrialPeriod    bool
	GracePeriod    bool
	GraceExpiresAt *time.Time
	BillingDate    *time.Time

	TwoFASecret        *string
	TwoFAPendingSecret *string
	TwoFAEnabled       bool

	Preferences Preferences

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword indica si la cuenta puede autenticarse con contraseña.
func (u *User) HasPassword() bool { return u.PasswordHash != nil && *u.PasswordHash != "" }

// SetVerification setea o limpia código y expiración juntos.
func (u *User) SetVerification(code string, expiresAt time.Time) {
	u.VerificationCode = &code
	u.VerificationExpiresAt = &expiresAt
}

// ClearVerification marca verificado y limpia código + expiración.
func (u *User) ClearVerification() {
	u.IsVerified = true
	u.VerificationCode = nil
	u.VerificationExpiresAt = nil
}

// Clone retorna una copia profunda (los punteros no se comparten).
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = cloneStr(u.PasswordHash)
	cp.GoogleID = cloneStr(u.GoogleID)
	cp.Photo = cloneStr(u.Photo)
	cp.Phone = cloneStr(u.Phone)
	cp.VerificationCode = cloneStr(u.VerificationCode)
	cp.VerificationExpiresAt = cloneTime(u.VerificationExpiresAt)
	cp.GraceExpiresAt = cloneTime(u.GraceExpiresAt)
	cp.BillingDate = cloneTime(u.BillingDate)
	cp.TwoFASecret = cloneStr(u.TwoFASecret)
	cp.TwoFAPendingSecret = cloneStr(u.TwoFAPendingSecret)
	return &cp
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// NormalizeEmail aplica trim + minúsculas.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// UserRepository es el Credential Store.
type UserRepository interface {
	// GetByEmail busca por correo normalizado, incluyendo cuentas eliminadas.
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// Create inserta el usuario; asigna ID/CreatedAt si vienen vacíos.
	// Retorna ErrConflict si el correo ya existe.
	Create(ctx context.Context, u *User) error

	// Update guarda todos los campos del usuario.
	Update(ctx context.Context, u *User) error

	// SoftDeleteExpiredUnverified marca eliminado a los no verificados con código vencido.
	SoftDeleteExpiredUnverified(ctx context.Context, now time.Time) (int, error)

	// ListTrialEndingBetween lista usuarios en prueba cuya fecha de cobro cae en [from, to).
	ListTrialEndingBetween(ctx context.Context, from, to time.Time) ([]User, error)

	// ListInGracePeriod lista usuarios en periodo de gracia aún vigente.
	ListInGracePeriod(ctx context.Context, now time.Time) ([]User, error)
}
