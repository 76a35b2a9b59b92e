// Package users contiene los DTOs de /usuarios/me y de la gestión de 2FA.
package users

import "time"

// ProfileResponse es GET /usuarios/me.
type ProfileResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"nombre"`
	Email        string         `json:"correo"`
	Role         string         `json:"rol"`
	Photo        string         `json:"foto_perfil,omitempty"`
	Phone        string         `json:"telefono,omitempty"`
	IsVerified   bool           `json:"is_verified"`
	TwoFAEnabled bool           `json:"twofa_enabled"`
	TrialPeriod  bool           `json:"periodo_prueba"`
	GracePeriod  bool           `json:"periodo_gracia"`
	BillingDate  *time.Time     `json:"fecha_cobro,omitempty"`
	Preferences  PreferencesDTO `json:"preferencias"`
	CreatedAt    time.Time      `json:"created_at"`
}

type PreferencesDTO struct {
	Notifications bool   `json:"notificaciones"`
	Theme         string `json:"tema"`
	Locale        string `json:"idioma"`
}

// UpdatePreferencesRequest es PATCH /usuarios/me/preferencias. Los campos
// ausentes no se tocan.
type UpdatePreferencesRequest struct {
	Notifications *bool   `json:"notificaciones"`
	Theme         *string `json:"tema"`
	Locale        *string `json:"idioma"`
}

// SessionItem es un dispositivo con sesión activa.
type SessionItem struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	Current    bool       `json:"actual"`
}

type SessionsResponse struct {
	Sessions []SessionItem `json:"sesiones"`
}

// AccessResponse es GET /usuarios/me/acceso (solo llega si el gate dejó pasar).
type AccessResponse struct {
	Active      bool       `json:"activo"`
	TrialPeriod bool       `json:"periodo_prueba"`
	BillingDate *time.Time `json:"fecha_cobro,omitempty"`
}

// TwoFactorActivateResponse lleva la URI otpauth:// que el frontend muestra como QR.
type TwoFactorActivateResponse struct {
	Message   string `json:"message"`
	QRCodeURL string `json:"qrCodeUrl"`
}

// TwoFactorCodeRequest es el body de confirmar/desactivar.
type TwoFactorCodeRequest struct {
	Token string `json:"token"`
}

type TwoFactorStatusResponse struct {
	Message string `json:"message"`
	Enabled bool   `json:"enabled"`
}

// ForceSignOutResponse es POST /admin/usuarios/{id}/sesiones/revocar.
type ForceSignOutResponse struct {
	Revoked int `json:"revocadas"`
}
