package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/otp"
)

func newTestMailer() (*Mailer, *MockEmailSender) {
	sender := &MockEmailSender{}
	return NewMailer(sender, zerolog.Nop()), sender
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	tmpl := Template{Subject: "Hi {{name}}", Body: "code {{code}} for {{name}}"}
	subject, body := tmpl.Render(map[string]string{"name": "Ada", "code": "123456"})
	if subject != "Hi Ada" {
		t.Fatalf("subject = %q", subject)
	}
	if body != "code 123456 for Ada" {
		t.Fatalf("body = %q", body)
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	tmpl := Template{Subject: "x", Body: "{{missing}}"}
	_, body := tmpl.Render(map[string]string{})
	if body != "{{missing}}" {
		t.Fatalf("body = %q", body)
	}
}

func TestSendCodePicksTemplateByPurpose(t *testing.T) {
	cases := []struct {
		purpose otp.Purpose
		want    string
	}{
		{otp.PurposeRegister, "verification code"},
		{otp.PurposeLogin, "login code"},
		{otp.PurposeReset, "reset code"},
	}
	for _, tc := range cases {
		m, sender := newTestMailer()
		if err := m.SendCode(context.Background(), "a@b.com", "Ada", tc.purpose, "123456", 10); err != nil {
			t.Fatalf("SendCode(%s): %v", tc.purpose, err)
		}
		msg, ok := sender.Last()
		if !ok {
			t.Fatalf("no email captured for %s", tc.purpose)
		}
		if !strings.Contains(msg.Body, tc.want) {
			t.Errorf("%s: body %q missing %q", tc.purpose, msg.Body, tc.want)
		}
		if !strings.Contains(msg.Body, "123456") {
			t.Errorf("%s: body missing code", tc.purpose)
		}
		if !strings.Contains(msg.Body, "10 minutes") {
			t.Errorf("%s: body missing ttl", tc.purpose)
		}
	}
}

func TestSendCodeUnknownPurpose(t *testing.T) {
	m, _ := newTestMailer()
	if err := m.SendCode(context.Background(), "a@b.com", "Ada", otp.Purpose("bogus"), "1", 1); err == nil {
		t.Fatal("expected error for unknown purpose")
	}
}

func TestSendTemplateUnknownName(t *testing.T) {
	m, _ := newTestMailer()
	if err := m.SendTemplate(context.Background(), "a@b.com", "nope", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestSendTemplatePropagatesSenderError(t *testing.T) {
	sender := &MockEmailSender{Err: errors.New("boom")}
	m := NewMailer(sender, zerolog.Nop())
	err := m.SendTemplate(context.Background(), "a@b.com", TemplateClinicWelcome, nil)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v", err)
	}
}

func TestSendClinicWelcome(t *testing.T) {
	m, sender := newTestMailer()
	err := m.SendClinicWelcome(context.Background(), "admin@clinic.com", "Dr. Lee", "Sunrise Clinic", "2027-08-29")
	if err != nil {
		t.Fatalf("SendClinicWelcome: %v", err)
	}
	msg, _ := sender.Last()
	if !strings.Contains(msg.Body, "Sunrise Clinic") || !strings.Contains(msg.Body, "2027-08-29") {
		t.Fatalf("body = %q", msg.Body)
	}
}

func TestSendRenewalReminder(t *testing.T) {
	m, sender := newTestMailer()
	err := m.SendRenewalReminder(context.Background(), "admin@clinic.com", "Dr. Lee", "Sunrise Clinic", "2026-09-10", 12)
	if err != nil {
		t.Fatalf("SendRenewalReminder: %v", err)
	}
	msg, _ := sender.Last()
	if !strings.Contains(msg.Body, "12 days") {
		t.Fatalf("body = %q", msg.Body)
	}
}

func TestLogSenderNeverFails(t *testing.T) {
	s := &LogSender{Logger: zerolog.Nop()}
	if err := s.Send(context.Background(), "a@b.com", "s", "b"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
