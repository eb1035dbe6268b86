package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"unicode"
)

// ErrNoRecipients is returned when a confirmation has nowhere to go.
var ErrNoRecipients = errors.New("no email recipients")

// Dispatcher sends order confirmations.
type Dispatcher interface {
	SendOrderConfirmation(ctx context.Context, c Confirmation) error
}

// Config holds SMTP settings. Username may be empty for relays that
// accept unauthenticated mail.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	cfg      Config
	sendMail sendFunc
	logger   *slog.Logger
}

// NewService creates a new email service
func NewService(cfg Config, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		sendMail: smtp.SendMail,
		logger:   logger.With("component", "email"),
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(ctx context.Context, c Confirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := make([]string, 0, len(c.Recipients))
	for _, r := range c.Recipients {
		if strings.ContainsFunc(r, unicode.IsControl) {
			s.logger.Warn("dropping recipient with control characters", "order_id", headerValue(c.OrderID))
			continue
		}
		to = append(to, r)
	}
	if len(to) == 0 {
		return ErrNoRecipients
	}

	body := BuildOrderConfirmationBody(c)
	if err := s.send(to, c.Subject(), body); err != nil {
		return fmt.Errorf("failed to send confirmation for %s: %w", c.OrderID, err)
	}

	s.logger.Info("order confirmation sent", "order_id", c.OrderID, "recipients", len(to))
	return nil
}

func (s *Service) send(to []string, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		headerValue(s.cfg.From), headerValue(strings.Join(to, ", ")),
		mime.QEncoding.Encode("utf-8", headerValue(subject)), body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	return s.sendMail(addr, auth, s.cfg.From, to, []byte(msg))
}

// headerValue flattens control characters to spaces so a value cannot end
// its header line early.
func headerValue(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, v)
}
