// Package mailer sends the transactional emails of the auth flows.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/angelmondragon/popspot-backend/pkg/config"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
)

// Message is a plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP delivers mail through the configured relay.
type SMTP struct {
	addr string
	from string
	auth smtp.Auth
	send sendFunc
}

func NewSMTP(cfg config.MailConfig) (*SMTP, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	if host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("mail from address is required")
	}
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, host)
	}
	return &SMTP{
		addr: net.JoinHostPort(host, strconv.Itoa(cfg.SMTPPort)),
		from: cfg.From,
		auth: auth,
		send: smtp.SendMail,
	}, nil
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := strings.TrimSpace(msg.To)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient")
	}
	if err := s.send(s.addr, s.auth, s.from, []string{to}, compose(s.from, to, msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func compose(from, to string, msg Message) []byte {
	subject := strings.NewReplacer("\r", " ", "\n", " ").Replace(msg.Subject)
	var b strings.Builder
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// Log writes messages to the logger instead of sending them. Used when no
// SMTP relay is configured.
type Log struct {
	logg *logger.Logger
}

func NewLog(logg *logger.Logger) *Log {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Log{logg: logg}
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	ctx = l.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
	l.logg.Info(ctx, "mail not sent: smtp relay not configured")
	return nil
}

// New picks the SMTP sender when a relay is configured and the log sender otherwise.
func New(cfg config.MailConfig, logg *logger.Logger) (Sender, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return NewLog(logg), nil
	}
	return NewSMTP(cfg)
}
