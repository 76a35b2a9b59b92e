package email

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_AllRender(t *testing.T) {
	tpls, err := LoadTemplates()
	require.NoError(t, err)

	for name := range sources {
		subject, html, text, err := tpls.Render(name, Vars{Name: "Ana", Code: "123456", TTLMinutes: 15, Link: "https://x", Days: 3, Until: "01/01/2027"})
		require.NoError(t, err, name)
		assert.NotEmpty(t, subject, name)
		assert.Contains(t, html, "cid:"+LogoCID, name)
		assert.Contains(t, text, "Ana", name)
	}

	_, _, _, err = tpls.Render("nope", Vars{})
	assert.Error(t, err)
}

func TestTemplates_EscapeHTML(t *testing.T) {
	tpls := MustLoadTemplates()
	_, html, _, err := tpls.Render(TemplateResetConfirmation, Vars{Name: "<script>x</script>"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestMailer_Verification(t *testing.T) {
	rec := &Recorder{}
	m := NewMailer(rec, "", "")

	require.NoError(t, m.SendVerification("ana@pisci.app", "Ana", "654321", 15*time.Minute))
	msg, ok := rec.Last("ana@pisci.app")
	require.True(t, ok)
	assert.Equal(t, "Código de verificación", msg.Subject)
	assert.Contains(t, msg.HTML, "654321")
	assert.Contains(t, msg.Text, "15 minutos")
}

func TestMailer_LoginNotificationOmitsEmptyIP(t *testing.T) {
	rec := &Recorder{}
	m := NewMailer(rec, "", "")
	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	require.NoError(t, m.SendLoginNotification("a@b.c", "Ana", at, ""))
	msg, _ := rec.Last("a@b.c")
	assert.Contains(t, msg.HTML, "04/05/2026 10:30")
	assert.NotContains(t, msg.HTML, "IP aproximada")
}

func TestMailer_PaymentFailedUsesBillingURL(t *testing.T) {
	rec := &Recorder{}
	m := NewMailer(rec, "", "https://billing.example/pay")

	require.NoError(t, m.SendPaymentFailed("a@b.c", "Ana", time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC)))
	msg, _ := rec.Last("a@b.c")
	assert.Contains(t, msg.HTML, "https://billing.example/pay")
	assert.True(t, strings.Contains(msg.Text, "09/07/2026"))
}

func TestMailer_PropagatesSenderError(t *testing.T) {
	rec := &Recorder{Err: errors.New("smtp down")}
	m := NewMailer(rec, "", "")
	assert.Error(t, m.SendResetConfirmation("a@b.c", "Ana"))
}

func TestSMTPSender_MessageHeaders(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "no-reply@pisci.app", "u", "p")
	m := s.message("ana@pisci.app", "Hola", "<b>hola</b>", "hola")
	assert.Equal(t, []string{"ana@pisci.app"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Hola"}, m.GetHeader("Subject"))
	assert.Contains(t, m.GetHeader("From")[0], "Pisci App")
}

func TestDiagnoseSMTP(t *testing.T) {
	assert.Equal(t, "auth", DiagnoseSMTP(errors.New("535 5.7.8 Username and Password not accepted")).Code)
	assert.Equal(t, "dial", DiagnoseSMTP(errors.New("dial tcp: connection refused")).Code)
	assert.True(t, DiagnoseSMTP(errors.New("421 try again later")).Temporary)
	assert.Equal(t, "unknown", DiagnoseSMTP(errors.New("weird")).Code)
}
