package clinic

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/notification"
)

func newTestReminder(svc *Service, sender *notification.MockEmailSender) *Reminder {
	r := NewReminder(svc, notification.NewMailer(sender, zerolog.Nop()), zerolog.Nop())
	r.now = svc.now
	return r
}

func TestSweepMailsOnlyExpiringClinics(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	soon := registered(t, svc, 12)
	soon.AdminEmail = "soon@sunrise.com"
	far := registered(t, svc, 24)
	far.AdminEmail = "far@sunrise.com"

	// Pull the 12-month clinic inside the reminder window.
	soon.Validity.EndDate = svc.now().AddDate(0, 0, 10)

	sender := &notification.MockEmailSender{}
	newTestReminder(svc, sender).Sweep(context.Background())

	if len(sender.Sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.Sent))
	}
	mail := sender.Sent[0]
	if mail.To != soon.AdminEmail {
		t.Fatalf("mailed %s, want %s", mail.To, soon.AdminEmail)
	}
	if !strings.Contains(mail.Body, soon.Name) {
		t.Fatal("reminder body does not name the clinic")
	}
	for _, m := range sender.Sent {
		if m.To == far.AdminEmail {
			t.Fatal("clinic outside the window was mailed")
		}
	}
}

func TestSweepSkipsLapsedAndInactive(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	lapsed := registered(t, svc, 12)
	lapsed.Validity.EndDate = svc.now().AddDate(0, 0, -1)

	inactive := registered(t, svc, 12)
	inactive.Validity.EndDate = svc.now().AddDate(0, 0, 5)
	inactive.IsActive = false

	sender := &notification.MockEmailSender{}
	newTestReminder(svc, sender).Sweep(context.Background())

	if len(sender.Sent) != 0 {
		t.Fatalf("sent %d mails, want 0", len(sender.Sent))
	}
}

func TestSweepExpiryBoundary(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	c := registered(t, svc, 12)
	c.Validity.EndDate = svc.now().Add(12 * time.Hour)

	sender := &notification.MockEmailSender{}
	newTestReminder(svc, sender).Sweep(context.Background())

	if len(sender.Sent) != 1 {
		t.Fatalf("sent %d mails, want 1 for a clinic expiring today", len(sender.Sent))
	}
}
