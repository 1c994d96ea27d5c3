// Package email renders and delivers transactional mail.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend send email failed: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. Used when no
// Resend key is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email not sent, no provider configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

var (
	resetTmpl = template.Must(template.New("reset").Parse(`<p>Hola,</p>
<p>Tu código para restablecer la contraseña de {{.App}} es:</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
<p>El código vence en {{.Minutes}} minutos. Si no solicitaste el cambio, ignora este correo.</p>`))

	welcomeTmpl = template.Must(template.New("welcome").Parse(`<p>Hola {{.Name}},</p>
<p>Bienvenido a {{.App}}.{{if .Lawyer}} Revisaremos tu tarjeta profesional y te avisaremos cuando tu perfil esté verificado.{{end}}</p>`))
)

// Mailer builds the application's emails and hands them to a Sender.
type Mailer struct {
	sender  Sender
	appName string
}

func NewMailer(sender Sender, appName string) *Mailer {
	if appName == "" {
		appName = "LexDesk"
	}
	return &Mailer{sender: sender, appName: appName}
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, code string, validMinutes int) error {
	body, err := render(resetTmpl, map[string]interface{}{
		"App":     m.appName,
		"Code":    code,
		"Minutes": validMinutes,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: m.appName + ": código para restablecer tu contraseña",
		HTML:    body,
	})
}

func (m *Mailer) SendWelcome(ctx context.Context, to, name string, lawyer bool) error {
	body, err := render(welcomeTmpl, map[string]interface{}{
		"App":    m.appName,
		"Name":   name,
		"Lawyer": lawyer,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: "Bienvenido a " + m.appName,
		HTML:    body,
	})
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email failed: %w", t.Name(), err)
	}
	return buf.String(), nil
}
