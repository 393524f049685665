package contact

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/pkg/errors"

	"github.com/mridungeorge/portfolio/internal/store"
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	To   string `yaml:"to"`
}

// Configured reports whether credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.User != "" && c.Pass != ""
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails each submission to the owner.
type EmailNotifier struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, sendMail: smtp.SendMail}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Notify(_ context.Context, sub store.ContactSubmission) error {
	if !e.cfg.Configured() {
		return errors.New("SMTP credentials not configured")
	}

	auth := smtp.PlainAuth("", e.cfg.User, e.cfg.Pass, e.cfg.Host)
	err := e.sendMail(e.cfg.Host+":"+e.cfg.Port, auth, e.cfg.User, []string{e.cfg.To}, e.message(sub))
	return errors.Wrap(err, "failed to send contact email")
}

func (e *EmailNotifier) message(sub store.ContactSubmission) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", sub.Name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, sub.Name, sub.Email, sub.Message)

	return []byte("To: " + e.cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + e.cfg.User + "\r\n" +
		"Reply-To: " + sub.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")
}
