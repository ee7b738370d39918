package utils

import (
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"
)

// Mailer sends a single email with a plain text body and an HTML alternative.
type Mailer interface {
	Send(to, subject, plainBody, htmlBody string) error
}

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPMailer delivers mail through an SMTP server using gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:   from,
	}
}

func (m *SMTPMailer) Send(to, subject, plainBody, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainBody)
	if htmlBody != "" {
		msg.AddAlternative("text/html", htmlBody)
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Title}}</title>
	<style>
		body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0; }
		.container { background-color: #ffffff; margin: 20px auto; padding: 20px; border-radius: 8px; max-width: 600px; }
		h1 { color: #333333; }
		p { color: #666666; }
		.highlight { font-weight: bold; color: #007bff; }
	</style>
</head>
<body>
	<div class="container">
		<h1>{{.Title}}</h1>
		{{range .Paragraphs}}<p>{{.}}</p>
		{{end}}{{if .Highlight}}<p class="highlight">{{.Highlight}}</p>{{end}}
	</div>
</body>
</html>
`))

// RenderEmail renders the shared HTML layout.
func RenderEmail(title, highlight string, paragraphs ...string) (string, error) {
	var b strings.Builder
	err := emailTemplate.Execute(&b, struct {
		Title      string
		Highlight  string
		Paragraphs []string
	}{title, highlight, paragraphs})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// SendResetCodeEmail mails a password reset code.
func SendResetCodeEmail(m Mailer, email, code string) error {
	htmlBody, err := RenderEmail("Password Reset Code", code,
		"Your password reset code is:",
		"If you did not request a password reset, please ignore this email.")
	if err != nil {
		return err
	}
	return m.Send(email, "Password Reset Code", "Your password reset code is: "+code, htmlBody)
}

// SendVerificationCodeEmail mails the code that confirms ownership of an address.
func SendVerificationCodeEmail(m Mailer, email, code string) error {
	htmlBody, err := RenderEmail("Confirm Your Email", code,
		"Enter this code in HealPing to confirm your email address:",
		"If you did not create an account, please ignore this email.")
	if err != nil {
		return err
	}
	return m.Send(email, "Confirm Your Email", "Your HealPing verification code is: "+code, htmlBody)
}
