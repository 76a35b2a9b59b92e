package helpers

import (
	"net"
	"net/http"
	"strings"

	"github.com/pisciapp/backend/internal/session"
)

// ClientIP toma el primer X-Forwarded-For o, si no hay, RemoteAddr.
func ClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// Meta arma la metadata de dispositivo que se guarda con cada sesión.
func Meta(r *http.Request) session.Meta {
	ua := r.UserAgent()
	if len(ua) > 512 {
		ua = ua[:512]
	}
	return session.Meta{IP: ClientIP(r), UserAgent: ua}
}
