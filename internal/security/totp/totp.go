// Package totp implementa RFC 6238 (HMAC-SHA1, 6 dígitos, paso de 30s).
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	Digits = 6
	Period = 30
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret retorna una semilla de 20 bytes y su base32 sin padding.
func GenerateSecret() (raw []byte, encoded string, err error) {
	raw = make([]byte, 20)
	if _, err = rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("totp: random: %w", err)
	}
	return raw, b32.EncodeToString(raw), nil
}

// DecodeSecret acepta base32 con o sin padding, en mayúsculas o minúsculas.
func DecodeSecret(encoded string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimSpace(encoded))
	s = strings.TrimRight(s, "=")
	raw, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("totp: decode secret: %w", err)
	}
	return raw, nil
}

// OTPAuthURL construye el URI otpauth:// que escanean las apps autenticadoras.
func OTPAuthURL(issuer, account, secret string) string {
	label := url.PathEscape(issuer + ":" + account)
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", fmt.Sprint(Digits))
	q.Set("period", fmt.Sprint(Period))
	return "otpauth://totp/" + label + "?" + q.Encode()
}

// Counter retorna el contador de pasos para t.
func Counter(t time.Time) int64 { return t.Unix() / Period }

// Code genera el código para el instante t.
func Code(secret []byte, t time.Time) string { return hotp(secret, Counter(t)) }

// Verify acepta códigos en la ventana ±windowSteps. Si lastUsed no es nil,
// rechaza contadores <= *lastUsed (anti-replay). Retorna el contador aceptado.
// Cualquier entrada que no sea de 6 dígitos simplemente no verifica.
func Verify(secret []byte, code string, t time.Time, windowSteps int, lastUsed *int64) (bool, int64) {
	code = strings.TrimSpace(code)
	if len(code) != Digits || len(secret) == 0 {
		return false, 0
	}
	now := Counter(t)
	for c := now - int64(windowSteps); c <= now+int64(windowSteps); c++ {
		if lastUsed != nil && c <= *lastUsed {
			continue
		}
		if hmac.Equal([]byte(hotp(secret, c)), []byte(code)) {
			return true, c
		}
	}
	return false, 0
}

func hotp(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))
	m := hmac.New(sha1.New, secret)
	m.Write(msg[:])
	sum := m.Sum(nil)
	off := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[off:off+4]) & 0x7fffffff
	return fmt.Sprintf("%0*d", Digits, bin%1_000_000)
}
