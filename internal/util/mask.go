// Package util junta helpers chicos sin dependencias del dominio.
package util

import "strings"

// MaskEmail deja reconocible un correo en logs sin exponerlo entero:
// "ana.perez@gmail.com" -> "a…@g….com". Lo que no parece correo se
// reduce a primera y última letra.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return maskWord(s)
	}
	local, domain := s[:at], s[at+1:]

	labels := strings.Split(domain, ".")
	// el TLD queda visible salvo que el dominio no tenga puntos
	n := len(labels) - 1
	if n == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		labels[i] = shorten(labels[i])
	}
	return shorten(local) + "@" + strings.Join(labels, ".")
}

func shorten(s string) string {
	if len(s) <= 1 {
		return s
	}
	return s[:1] + "…"
}

func maskWord(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 3:
		return "***"
	default:
		return s[:1] + "…" + s[len(s)-1:]
	}
}
