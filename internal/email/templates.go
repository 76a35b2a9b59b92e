package email

import (
	"bytes"
	"fmt"
	htmltpl "html/template"
	texttpl "text/template"
)

const (
	TemplateVerification      = "verification"
	TemplateResetPassword     = "reset_password"
	TemplateResetConfirmation = "reset_confirmation"
	TemplateLoginNotification = "login_notification"
	TemplateTrialEnding       = "trial_ending"
	TemplatePaymentFailed     = "payment_failed"
)

// Vars son las variables disponibles en todas las plantillas.
type Vars struct {
	Name       string
	Code       string
	TTLMinutes int
	Link       string
	Date       string
	IP         string
	Days       int
	Until      string
}

type template struct {
	subject string
	html    *htmltpl.Template
	text    *texttpl.Template
}

const layoutHead = `<html>
  <body style="font-family:Arial,sans-serif;background:#f4f4f7;">
    <div style="background:#fff;padding:20px;max-width:600px;margin:auto;border-radius:8px;">
      <div style="text-align:center;margin-bottom:20px;">
        <img src="cid:logo_pisciapp" alt="Pisci App Logo" style="width:120px;display:block;margin:0 auto;" />
      </div>
`

const layoutFoot = `    </div>
  </body>
</html>
`

var sources = map[string]struct{ subject, html, text string }{
	TemplateVerification: {
		subject: "Código de verificación",
		html: `      <h2 style="color:#333;">Bienvenido a Pisci App, {{.Name}}</h2>
      <p style="font-size:14px;color:#555;">Tu código de verificación es:</p>
      <h1 style="color:#007bff;text-align:center;margin:20px 0;">{{.Code}}</h1>
      <p style="font-size:13px;color:#999;">Expira en {{.TTLMinutes}} minutos.</p>
`,
		text: "Hola {{.Name}}, tu código de verificación de Pisci App es {{.Code}}. Expira en {{.TTLMinutes}} minutos.\n",
	},
	TemplateResetPassword: {
		subject: "Recupera tu contraseña",
		html: `      <h2>Hola, {{.Name}}</h2>
      <p>Haz clic en el siguiente botón para restablecer tu contraseña:</p>
      <p style="text-align:center">
        <a href="{{.Link}}" style="background:#28a745;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none;">Restablecer contraseña</a>
      </p>
      <p style="font-size:13px;color:#999;">El enlace expira en {{.TTLMinutes}} minutos. Si no lo solicitaste, ignora este correo.</p>
`,
		text: "Hola {{.Name}}, para restablecer tu contraseña abre {{.Link}} (expira en {{.TTLMinutes}} minutos). Si no lo solicitaste, ignora este correo.\n",
	},
	TemplateResetConfirmation: {
		subject: "Tu contraseña fue actualizada",
		html: `      <h2>Hola, {{.Name}}</h2>
      <p>Tu contraseña fue cambiada exitosamente.</p>
      <p>Si no fuiste tú, contacta soporte de inmediato.</p>
`,
		text: "Hola {{.Name}}, tu contraseña fue cambiada exitosamente. Si no fuiste tú, contacta soporte de inmediato.\n",
	},
	TemplateLoginNotification: {
		subject: "Nuevo inicio de sesión en Pisci App",
		html: `      <h2>Hola, {{.Name}}</h2>
      <p>Se detectó un inicio de sesión en tu cuenta.</p>
      <p>Fecha: {{.Date}}</p>
      {{if .IP}}<p>IP aproximada: {{.IP}}</p>{{end}}
      <p>Si no fuiste tú, cambia tu contraseña inmediatamente.</p>
`,
		text: "Hola {{.Name}}, se detectó un inicio de sesión en tu cuenta el {{.Date}}{{if .IP}} desde {{.IP}}{{end}}. Si no fuiste tú, cambia tu contraseña inmediatamente.\n",
	},
	TemplateTrialEnding: {
		subject: "Tu prueba gratuita está por finalizar",
		html: `      <h2>Hola, {{.Name}}</h2>
      <p>Tu <b>prueba gratuita</b> expira en <b>{{.Days}} días</b>.</p>
      <p style="text-align:center">
        <a href="{{.Link}}" style="background:#007bff;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none;">Renovar ahora</a>
      </p>
`,
		text: "Hola {{.Name}}, tu prueba gratuita expira en {{.Days}} días. Renueva en {{.Link}}\n",
	},
	TemplatePaymentFailed: {
		subject: "Problema con tu pago",
		html: `      <h2>Hola, {{.Name}}</h2>
      <p>Tu último pago <b>falló</b>. Tienes hasta el {{.Until}} para actualizar tu método de pago:</p>
      <p style="text-align:center">
        <a href="{{.Link}}" style="background:#dc3545;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none;">Actualizar pago</a>
      </p>
`,
		text: "Hola {{.Name}}, tu pago no se procesó. Tienes hasta el {{.Until}} para actualizar tu tarjeta: {{.Link}}\n",
	},
}

// Templates es el set compilado de plantillas.
type Templates struct {
	byName map[string]template
}

// LoadTemplates compila las plantillas embebidas.
func LoadTemplates() (*Templates, error) {
	t := &Templates{byName: make(map[string]template, len(sources))}
	for name, src := range sources {
		h, err := htmltpl.New(name + "_html").Parse(layoutHead + src.html + layoutFoot)
		if err != nil {
			return nil, fmt.Errorf("email: parse %s html: %w", name, err)
		}
		x, err := texttpl.New(name + "_txt").Parse(src.text)
		if err != nil {
			return nil, fmt.Errorf("email: parse %s txt: %w", name, err)
		}
		t.byName[name] = template{subject: src.subject, html: h, text: x}
	}
	return t, nil
}

// MustLoadTemplates es LoadTemplates para inicialización; las fuentes son constantes.
func MustLoadTemplates() *Templates {
	t, err := LoadTemplates()
	if err != nil {
		panic(err)
	}
	return t
}

// Render devuelve subject, html y texto de la plantilla name.
func (t *Templates) Render(name string, v Vars) (subject, html, text string, err error) {
	tpl, ok := t.byName[name]
	if !ok {
		return "", "", "", fmt.Errorf("email: unknown template %q", name)
	}
	var hb, tb bytes.Buffer
	if err := tpl.html.Execute(&hb, v); err != nil {
		return "", "", "", fmt.Errorf("email: render %s html: %w", name, err)
	}
	if err := tpl.text.Execute(&tb, v); err != nil {
		return "", "", "", fmt.Errorf("email: render %s txt: %w", name, err)
	}
	return tpl.subject, hb.String(), tb.String(), nil
}
