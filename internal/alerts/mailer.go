package alerts

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sudo-init-do/nearbuy/internal/config"
)

// Mailer sends a single email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer picks the configured provider, or returns nil when none is set up.
func NewMailer(cfg config.Config) Mailer {
	if cfg.MailProvider == "plunk" || (cfg.PlunkAPIKey != "" && cfg.MailProvider == "") {
		if cfg.PlunkAPIKey == "" {
			return nil
		}
		return NewPlunkMailer(cfg.PlunkAPIURL, cfg.PlunkAPIKey, cfg.PlunkFrom, cfg.MailReplyTo)
	}
	if !cfg.SMTPConfigured() {
		return nil
	}
	return &SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		ReplyTo:  cfg.MailReplyTo,
	}
}

// SMTPMailer sends plain text or HTML mail over implicit TLS.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	ReplyTo  string
}

func buildMessage(from, to, replyTo, subject, body string) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	if replyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", replyTo)
	}
	msg.WriteString("MIME-Version: 1.0\r\n")
	contentType := "text/plain"
	lb := strings.ToLower(body)
	if strings.Contains(lb, "<html") || strings.Contains(lb, "<body") || strings.Contains(lb, "<!doctype html") {
		contentType = "text/html"
	}
	fmt.Fprintf(&msg, "Content-Type: %s; charset=\"utf-8\"\r\n", contentType)
	msg.WriteString("\r\n" + body + "\r\n")
	return msg.String()
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := m.Host + ":" + m.Port
	msg := buildMessage(m.From, to, m.ReplyTo, subject, body)

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: m.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(m.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return c.Quit()
}
