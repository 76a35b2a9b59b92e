// Package auth contiene los DTOs de /auth y del segundo paso de 2FA.
// Los nombres JSON siguen la API que ya consume el frontend.
package auth

// RegisterRequest es el body de POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"nombre"`
	Email    string `json:"correo"`
	Password string `json:"contraseña"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// VerifyRequest es el body de POST /auth/verify.
type VerifyRequest struct {
	Email string `json:"correo"`
	Code  string `json:"codigo"`
}

type LoginRequest struct {
	Email    string `json:"correo"`
	Password string `json:"contraseña"`
}

// GoogleLoginRequest acepta el ID token como "idToken" o "credential"
// (nombre que usa Google Identity Services).
type GoogleLoginRequest struct {
	IDToken    string `json:"idToken"`
	Credential string `json:"credential"`
}

// Token retorna el ID token recibido en cualquiera de los dos campos.
func (r GoogleLoginRequest) Token() string {
	if r.IDToken != "" {
		return r.IDToken
	}
	return r.Credential
}

// UserSummary es el usuario que viaja en la respuesta de login.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"correo"`
	Role  string `json:"rol"`
	Photo string `json:"foto_perfil,omitempty"`
}

// LoginResponse: o bien tokens + usuario, o bien requires2FA + userId.
type LoginResponse struct {
	Message     string       `json:"message"`
	AccessToken string       `json:"accessToken,omitempty"`
	ExpiresIn   int64        `json:"expiresIn,omitempty"`
	User        *UserSummary `json:"usuario,omitempty"`
	Requires2FA bool         `json:"requires2FA,omitempty"`
	UserID      string       `json:"userId,omitempty"`
}

// RefreshRequest: el refresh token viaja en la cookie; el body es alternativa
// para clientes sin cookies.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// TwoFactorLoginRequest es el body de POST /usuarios/auth/2fa/verificar.
type TwoFactorLoginRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"correo"`
}

type ResetPasswordRequest struct {
	Password string `json:"nuevaContraseña"`
}

// MessageResponse es la respuesta genérica {message}.
type MessageResponse struct {
	Message string `json:"message"`
}
