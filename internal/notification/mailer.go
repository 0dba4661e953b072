package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"ms-booking/internal/config"
)

// Mailer is the e-mail transport.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

var emailTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
  <h2>{{.Subject}}</h2>
  <p>{{.Body}}</p>
  <p style="color: #888">You can change which e-mails you receive in your notification preferences.</p>
</body>
</html>`))

// SMTPMailer sends multipart (plain text and HTML) mail through one SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	html, err := renderEmail(subject, body)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	msg.AddAlternative("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func renderEmail(subject, body string) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, struct{ Subject, Body string }{subject, body}); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
