package email

import (
	"time"

	"github.com/pisciapp/backend/internal/metrics"
	"github.com/pisciapp/backend/internal/observability/logger"
)

// Mailer arma y envía cada correo de negocio.
type Mailer struct {
	Sender     Sender
	Templates  *Templates
	PlansURL   string
	BillingURL string
	// Location para formatear fechas en los correos; nil = UTC.
	Location *time.Location
}

func NewMailer(s Sender, plansURL, billingURL string) *Mailer {
	if plansURL == "" {
		plansURL = "https://pisciapp.com/planes"
	}
	if billingURL == "" {
		billingURL = "https://pisciapp.com/facturacion"
	}
	return &Mailer{Sender: s, Templates: MustLoadTemplates(), PlansURL: plansURL, BillingURL: billingURL}
}

func (m *Mailer) send(name, to string, v Vars) error {
	subject, html, text, err := m.Templates.Render(name, v)
	if err == nil {
		err = m.Sender.Send(to, subject, html, text)
	}
	metrics.EmailsSent.WithLabelValues(name, metrics.Result(err)).Inc()
	if err != nil {
		logger.L().Warn("email not sent", logger.Component("email.mailer"), logger.String("template", name), logger.Email(to), logger.Err(err))
	}
	return err
}

func (m *Mailer) format(t time.Time) string {
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02/01/2006 15:04")
}

func (m *Mailer) SendVerification(to, name, code string, ttl time.Duration) error {
	return m.send(TemplateVerification, to, Vars{Name: name, Code: code, TTLMinutes: int(ttl.Minutes())})
}

func (m *Mailer) SendResetPassword(to, name, link string, ttl time.Duration) error {
	return m.send(TemplateResetPassword, to, Vars{Name: name, Link: link, TTLMinutes: int(ttl.Minutes())})
}

func (m *Mailer) SendResetConfirmation(to, name string) error {
	return m.send(TemplateResetConfirmation, to, Vars{Name: name})
}

func (m *Mailer) SendLoginNotification(to, name string, at time.Time, ip string) error {
	return m.send(TemplateLoginNotification, to, Vars{Name: name, Date: m.format(at), IP: ip})
}

func (m *Mailer) SendTrialEnding(to, name string, days int) error {
	return m.send(TemplateTrialEnding, to, Vars{Name: name, Days: days, Link: m.PlansURL})
}

func (m *Mailer) SendPaymentFailed(to, name string, graceUntil time.Time) error {
	return m.send(TemplatePaymentFailed, to, Vars{Name: name, Until: m.format(graceUntil)[:10], Link: m.BillingURL})
}
