package email

import (
	"errors"
	"net"
	"strings"
)

// SMTPDiag resume un error SMTP para el log.
type SMTPDiag struct {
	Code      string // auth|tls|dial|timeout|rate_limited|invalid_recipient|rejected|network|unknown
	Temporary bool   // si conviene reintentar
}

// DiagnoseSMTP clasifica un error de envío.
func DiagnoseSMTP(err error) SMTPDiag {
	if err == nil {
		return SMTPDiag{Code: "unknown"}
	}
	s := strings.ToLower(err.Error())

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() || strings.Contains(s, "timeout") {
		return SMTPDiag{Code: "timeout", Temporary: true}
	}
	if strings.Contains(s, "connection refused") || strings.Contains(s, "no such host") || strings.Contains(s, "dial tcp") {
		return SMTPDiag{Code: "dial", Temporary: true}
	}
	if strings.Contains(s, "x509:") || strings.Contains(s, "tls") && (strings.Contains(s, "handshake") || strings.Contains(s, "certificate")) {
		return SMTPDiag{Code: "tls"}
	}
	// Gmail responde 535 5.7.8 cuando la app password es inválida.
	if strings.Contains(s, "5.7.8") || strings.Contains(s, "535") ||
		strings.Contains(s, "username and password not accepted") ||
		strings.Contains(s, "authentication failed") {
		return SMTPDiag{Code: "auth"}
	}
	if strings.Contains(s, "4.7.0") || strings.Contains(s, "rate limit") ||
		strings.Contains(s, "try again later") || strings.Contains(s, "421") || strings.Contains(s, "451") {
		return SMTPDiag{Code: "rate_limited", Temporary: true}
	}
	if strings.Contains(s, "5.1.1") || strings.Contains(s, "user unknown") || strings.Contains(s, "mailbox not found") {
		return SMTPDiag{Code: "invalid_recipient"}
	}
	if strings.Contains(s, "5.7.1") || strings.Contains(s, "message rejected") || strings.Contains(s, "dmarc") {
		return SMTPDiag{Code: "rejected"}
	}
	if ne != nil {
		return SMTPDiag{Code: "network", Temporary: true}
	}
	return SMTPDiag{Code: "unknown"}
}
