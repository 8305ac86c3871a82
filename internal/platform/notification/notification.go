// Package notification delivers transactional email: one-time codes for
// registration, login and password reset, clinic onboarding mail and
// validity renewal reminders. Delivery failures are reported to the
// caller but never block the flow that triggered them.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/otp"
)

// EmailSender abstracts the transport so tests and dev environments can
// swap out SMTP.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
	Close() error
}

// Template is a named subject/body pair with {{key}} placeholders.
type Template struct {
	Name    string
	Subject string
	Body    string
}

// Render substitutes {{key}} placeholders from data. Unknown
// placeholders are left in place.
func (t Template) Render(data map[string]string) (subject, body string) {
	subject, body = t.Subject, t.Body
	for k, v := range data {
		ph := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, ph, v)
		body = strings.ReplaceAll(body, ph, v)
	}
	return subject, body
}

const (
	TemplateRegisterCode    = "register-code"
	TemplateLoginCode       = "login-code"
	TemplateResetCode       = "reset-code"
	TemplateClinicWelcome   = "clinic-welcome"
	TemplateRenewalReminder = "renewal-reminder"
)

func builtinTemplates() map[string]Template {
	return map[string]Template{
		TemplateRegisterCode: {
			Name:    TemplateRegisterCode,
			Subject: "Verify your email",
			Body:    "Hello {{name}},\n\nYour verification code is {{code}}. It expires in {{ttl}} minutes.\n\nIf you did not create an account, ignore this email.",
		},
		TemplateLoginCode: {
			Name:    TemplateLoginCode,
			Subject: "Your login code",
			Body:    "Hello {{name}},\n\nYour login code is {{code}}. It expires in {{ttl}} minutes.\n\nIf this was not you, change your password immediately.",
		},
		TemplateResetCode: {
			Name:    TemplateResetCode,
			Subject: "Password reset code",
			Body:    "Hello {{name}},\n\nYour password reset code is {{code}}. It expires in {{ttl}} minutes.\n\nIf you did not request a reset, ignore this email.",
		},
		TemplateClinicWelcome: {
			Name:    TemplateClinicWelcome,
			Subject: "Welcome to Clinicore",
			Body:    "Hello {{name}},\n\nYour clinic {{clinic}} has been registered. Your subscription is valid until {{valid_until}}.\n\nSign in with this email address to manage your clinic.",
		},
		TemplateRenewalReminder: {
			Name:    TemplateRenewalReminder,
			Subject: "Your clinic subscription expires soon",
			Body:    "Hello {{name}},\n\nThe subscription for {{clinic}} expires on {{valid_until}} ({{days_left}} days from now). Renew to keep uninterrupted access.",
		},
	}
}

// Mailer renders templates and hands them to the configured sender.
type Mailer struct {
	sender    EmailSender
	templates map[string]Template
	logger    zerolog.Logger
}

func NewMailer(sender EmailSender, logger zerolog.Logger) *Mailer {
	return &Mailer{
		sender:    sender,
		templates: builtinTemplates(),
		logger:    logger.With().Str("component", "mailer").Logger(),
	}
}

// SendTemplate renders the named template and sends it.
func (m *Mailer) SendTemplate(ctx context.Context, to, name string, data map[string]string) error {
	tmpl, ok := m.templates[name]
	if !ok {
		return fmt.Errorf("unknown template: %s", name)
	}
	subject, body := tmpl.Render(data)
	if err := m.sender.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send %s to %s: %w", name, to, err)
	}
	m.logger.Debug().Str("template", name).Str("to", to).Msg("email sent")
	return nil
}

// SendCode mails a one-time code for the given purpose. ttlMinutes is
// informational text for the recipient, not an enforcement mechanism.
func (m *Mailer) SendCode(ctx context.Context, to, name string, purpose otp.Purpose, code string, ttlMinutes int) error {
	var tmpl string
	switch purpose {
	case otp.PurposeRegister:
		tmpl = TemplateRegisterCode
	case otp.PurposeLogin:
		tmpl = TemplateLoginCode
	case otp.PurposeReset:
		tmpl = TemplateResetCode
	default:
		return fmt.Errorf("no template for purpose %q", purpose)
	}
	return m.SendTemplate(ctx, to, tmpl, map[string]string{
		"name": name,
		"code": code,
		"ttl":  fmt.Sprintf("%d", ttlMinutes),
	})
}

// SendClinicWelcome mails the onboarding message after clinic registration.
func (m *Mailer) SendClinicWelcome(ctx context.Context, to, name, clinic, validUntil string) error {
	return m.SendTemplate(ctx, to, TemplateClinicWelcome, map[string]string{
		"name":        name,
		"clinic":      clinic,
		"valid_until": validUntil,
	})
}

// SendRenewalReminder mails the expiry warning for a clinic subscription.
func (m *Mailer) SendRenewalReminder(ctx context.Context, to, name, clinic, validUntil string, daysLeft int) error {
	return m.SendTemplate(ctx, to, TemplateRenewalReminder, map[string]string{
		"name":        name,
		"clinic":      clinic,
		"valid_until": validUntil,
		"days_left":   fmt.Sprintf("%d", daysLeft),
	})
}

// Close releases the underlying sender.
func (m *Mailer) Close() error {
	return m.sender.Close()
}

// SentEmail is a captured message for assertions in tests.
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender records messages instead of delivering them.
type MockEmailSender struct {
	mu   sync.Mutex
	Sent []SentEmail
	Err  error
}

func (m *MockEmailSender) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MockEmailSender) Close() error { return nil }

// Last returns the most recently captured message.
func (m *MockEmailSender) Last() (SentEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentEmail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

// LogSender writes the message to the log instead of delivering it.
// Used in development when SMTP is not configured.
type LogSender struct {
	Logger zerolog.Logger
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.Logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("email (log sender)")
	return nil
}

func (s *LogSender) Close() error { return nil }
