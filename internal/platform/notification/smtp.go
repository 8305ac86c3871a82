package notification

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	"github.com/rs/zerolog"
)

// SMTPSender delivers mail over SMTP with STARTTLS negotiation.
type SMTPSender struct {
	host   string
	port   int
	from   string
	user   string
	pass   string
	logger zerolog.Logger
}

func NewSMTPSender(host string, port int, from, user, pass string, logger zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		host:   host,
		port:   port,
		from:   from,
		user:   user,
		pass:   pass,
		logger: logger.With().Str("component", "smtp").Str("host", host).Logger(),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := mail.NewDialer(s.host, s.port, s.user, s.pass)
	d.TLSConfig = &tls.Config{ServerName: s.host}

	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			s.logger.Error().Err(err).Str("to", to).Msg("smtp send failed")
			return fmt.Errorf("smtp send: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *SMTPSender) Close() error { return nil }
