// Package email envía los correos transaccionales de Pisci App.
package email

import (
	"crypto/tls"
	"fmt"
	"sync"

	mail "github.com/go-mail/mail"

	"github.com/pisciapp/backend/internal/observability/logger"
)

// Sender es la interfaz para enviar emails.
type Sender interface {
	// Send envía un email con contenido HTML y texto plano.
	// El destinatario recibe ambas versiones como multipart/alternative.
	Send(to string, subject string, htmlBody string, textBody string) error
}

// LogoCID es el Content-ID que referencian las plantillas (cid:logo_pisciapp).
const LogoCID = "logo_pisciapp"

// SMTPSender implementa Sender usando SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	FromName           string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
	// LogoPath, si no está vacío, se embebe como cid:logo_pisciapp.
	LogoPath string
}

// NewSMTPSender crea un nuevo SMTPSender con los parámetros dados.
func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		From:     from,
		FromName: "Pisci App",
		User:     user,
		Pass:     pass,
		TLSMode:  "auto",
	}
}

func (s *SMTPSender) message(to, subject, htmlBody, textBody string) *mail.Message {
	m := mail.NewMessage()
	m.SetAddressHeader("From", s.From, s.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// Preferimos multipart/alternative (txt + html)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}
	if s.LogoPath != "" {
		m.Embed(s.LogoPath,
			mail.Rename("logo.png"),
			mail.SetHeader(map[string][]string{"Content-ID": {"<" + LogoCID + ">"}}),
		)
	}
	return m
}

func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}
	return d
}

// Send envía un email con contenido HTML y texto plano.
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	log := logger.L().With(
		logger.Component("email.smtp"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
		logger.Email(to),
	)
	log.Debug("sending email", logger.String("subject", subject), logger.String("tls_mode", s.TLSMode))

	if err := s.dialer().DialAndSend(s.message(to, subject, htmlBody, textBody)); err != nil {
		d := DiagnoseSMTP(err)
		log.Error("smtp send failed",
			logger.Err(err),
			logger.String("diag", d.Code),
			logger.Bool("temporary", d.Temporary),
		)
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Info("email sent")
	return nil
}

// LogSender no envía nada: deja el correo en el log. Se usa cuando no hay SMTP configurado.
type LogSender struct{}

func (LogSender) Send(to, subject, _, textBody string) error {
	logger.L().Info("email (log only)",
		logger.Component("email.log"),
		logger.Email(to),
		logger.String("subject", subject),
		logger.String("text", textBody),
	)
	return nil
}

// Message es un correo capturado por Recorder.
type Message struct {
	To, Subject, HTML, Text string
}

// Recorder guarda los correos en memoria (tests y modo dev).
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	Err  error // si no es nil, Send falla con este error
}

func (r *Recorder) Send(to, subject, htmlBody, textBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.msgs = append(r.msgs, Message{To: to, Subject: subject, HTML: htmlBody, Text: textBody})
	return nil
}

// Messages retorna una copia de lo enviado.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Last retorna el último correo enviado a to.
func (r *Recorder) Last(to string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].To == to {
			return r.msgs[i], true
		}
	}
	return Message{}, false
}
