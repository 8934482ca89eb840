package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/smallbiznis/gymcore/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

var messageTemplate = template.Must(template.ParseFS(templateFS, "templates/notification.html"))

type Mailer interface {
	Send(ctx context.Context, to []string, subject string, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailerFromConfig returns nil when no SMTP host is configured.
func NewMailerFromConfig(cfg config.Config) Mailer {
	if strings.TrimSpace(cfg.Email.SMTPHost) == "" {
		return nil
	}
	return NewSMTPMailer(SMTPConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
	})
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject string, msg Message) error {
	if len(to) == 0 {
		return nil
	}
	body, err := renderMessage(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	mime := "MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n"
	raw := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n%s%s",
		m.cfg.From, strings.Join(to, ", "), subject, mime, body))
	return m.send(addr, auth, m.cfg.From, to, raw)
}

func renderMessage(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := messageTemplate.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}
