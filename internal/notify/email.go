package notify

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/config"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/logger"
)

const dialTimeout = 20 * time.Second

// Sender attempts best-effort delivery of an alert. The bool is the only
// outcome: false covers transport failures and "not configured" alike.
type Sender interface {
	Send(subject, body string) bool
}

// Email delivers alerts over SMTP with STARTTLS (587-style submission).
type Email struct {
	log *logger.Logger
	cfg config.EmailConfig
}

func NewEmail(log *logger.Logger, cfg config.EmailConfig) *Email {
	return &Email{log: log, cfg: cfg}
}

func (e *Email) Send(subject, body string) bool {
	if !e.cfg.Configured() {
		// valid degraded mode: the alert still shows up in the logs
		e.log.Warn().Str("subject", subject).Msg("email not configured; printing alert")
		e.log.Info().Msg(body)
		return false
	}
	if err := e.send(subject, body); err != nil {
		e.log.Error().Err(err).Str("subject", subject).Msg("email send failed")
		return false
	}
	return true
}

func (e *Email) send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPHost, e.cfg.SMTPPort)
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	c, err := smtp.NewClient(conn, e.cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Quit()

	if err := c.StartTLS(&tls.Config{ServerName: e.cfg.SMTPHost}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	auth := smtp.PlainAuth("", e.cfg.From, e.cfg.Password, e.cfg.SMTPHost)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Mail(e.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range e.cfg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(e.message(subject, body))); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (e *Email) message(subject, body string) string {
	return strings.Join([]string{
		"From: " + e.cfg.From,
		"To: " + strings.Join(e.cfg.To, ","),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")
}
