package helpers

import (
	"net/http"
	"strings"
	"time"
)

// CookieConfig describe la cookie del refresh token.
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	SameSite string
	Secure   bool
}

func ParseSameSite(s string) http.SameSite {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

func (c CookieConfig) path() string {
	if strings.TrimSpace(c.Path) == "" {
		return "/"
	}
	return c.Path
}

// BuildCookie arma la cookie HttpOnly con el valor y ttl dados.
func (c CookieConfig) BuildCookie(value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     c.path(),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: ParseSameSite(c.SameSite),
	}
	if strings.TrimSpace(c.Domain) != "" {
		ck.Domain = c.Domain
	}
	if ttl > 0 {
		ck.Expires = time.Now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

// BuildDeletionCookie invalida la cookie en el navegador.
func (c CookieConfig) BuildDeletionCookie() *http.Cookie {
	ck := &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.path(),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: ParseSameSite(c.SameSite),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
	}
	if strings.TrimSpace(c.Domain) != "" {
		ck.Domain = c.Domain
	}
	return ck
}

// Read retorna el valor de la cookie o "" si no viene.
func (c CookieConfig) Read(r *http.Request) string {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}
