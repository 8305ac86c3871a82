package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

type mockRepo struct {
	invoices map[uuid.UUID]*Invoice
}

func newMockRepo() *mockRepo {
	return &mockRepo{invoices: make(map[uuid.UUID]*Invoice)}
}

func (m *mockRepo) Create(_ context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = "INV-" + inv.ID.String()[:8]
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return inv, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, inv *Invoice) error {
	m.invoices[inv.ID] = inv
	return nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Invoice, int, error) {
	var out []*Invoice
	for _, inv := range m.invoices {
		if f.ClinicID != nil && inv.ClinicID != *f.ClinicID {
			continue
		}
		if f.PatientID != nil && inv.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		out = append(out, inv)
	}
	return out, len(out), nil
}

func billingStaff(clinicID uuid.UUID) *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Type: "user", Role: auth.RoleBillingStaff, ClinicID: &clinicID}
}

func issued(t *testing.T, svc *Service, caller *auth.Principal, clinicID, patientID uuid.UUID) *Invoice {
	t.Helper()
	inv := &Invoice{
		ClinicID:  clinicID,
		PatientID: patientID,
		Items: []Item{
			{Description: "Consultation", Quantity: 1, UnitPriceCents: 5000},
			{Description: "Lab panel", Quantity: 2, UnitPriceCents: 1250},
		},
	}
	if err := svc.Create(context.Background(), caller, inv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return inv
}

func TestCreateComputesTotal(t *testing.T) {
	svc := NewService(newMockRepo())
	clinicID := uuid.New()
	inv := issued(t, svc, billingStaff(clinicID), clinicID, uuid.New())

	if inv.TotalCents != 7500 {
		t.Fatalf("total = %d, want 7500", inv.TotalCents)
	}
	if inv.Status != StatusPending {
		t.Fatalf("status = %q", inv.Status)
	}
	if inv.Currency != defaultCurrency {
		t.Fatalf("currency = %q", inv.Currency)
	}
	if inv.PaidAt != nil {
		t.Fatal("new invoice has paid_at set")
	}
}

func TestCreateIgnoresClientTotal(t *testing.T) {
	svc := NewService(newMockRepo())
	clinicID := uuid.New()
	inv := &Invoice{
		ClinicID:   clinicID,
		PatientID:  uuid.New(),
		TotalCents: 1,
		Items:      []Item{{Description: "Visit", Quantity: 1, UnitPriceCents: 9900}},
	}
	if err := svc.Create(context.Background(), billingStaff(clinicID), inv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.TotalCents != 9900 {
		t.Fatalf("total = %d, want 9900", inv.TotalCents)
	}
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	svc := NewService(newMockRepo())
	clinicID := uuid.New()
	inv := &Invoice{ClinicID: clinicID, PatientID: uuid.New()}
	if err := svc.Create(context.Background(), billingStaff(clinicID), inv); err == nil {
		t.Fatal("invoice without items accepted")
	}
}

func TestCreateForcesCallerClinic(t *testing.T) {
	svc := NewService(newMockRepo())
	clinicID := uuid.New()
	inv := &Invoice{
		ClinicID:  uuid.New(),
		PatientID: uuid.New(),
		Items:     []Item{{Description: "Visit", Quantity: 1, UnitPriceCents: 100}},
	}
	if err := svc.Create(context.Background(), billingStaff(clinicID), inv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.ClinicID != clinicID {
		t.Fatalf("clinic = %s, want caller's clinic", inv.ClinicID)
	}
}

func TestSetStatusPaidStampsPaidAt(t *testing.T) {
	svc := NewService(newMockRepo())
	clinicID := uuid.New()
	staff := billingStaff(clinicID)
	inv := issued(t, svc, staff, clinicID, uuid.New())

	paid, err := svc.SetStatus(context.Background(), staff, inv.ID, StatusPaid)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if paid.Status != StatusPaid {
		t.Fatalf("status = %q", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Fatal("paid_at not stamped")
	}
}

func TestSetStatusTerminal(t *testing.T) {
	svc := NewService(newMockRepo())
	clinicID := uuid.New()
	staff := billingStaff(clinicID)
	inv := issued(t, svc, staff, clinicID, uuid.New())

	if _, err := svc.SetStatus(context.Background(), staff, inv.ID, StatusCancelled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), staff, inv.ID, StatusPaid); err == nil {
		t.Fatal("cancelled invoice moved to paid")
	}
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	svc := NewService(newMockRepo())
	clinicID := uuid.New()
	staff := billingStaff(clinicID)
	inv := issued(t, svc, staff, clinicID, uuid.New())

	if _, err := svc.SetStatus(context.Background(), staff, inv.ID, "refunded"); err == nil {
		t.Fatal("unknown status accepted")
	}
}

func TestPatientSeesOnlyOwnInvoices(t *testing.T) {
	svc := NewService(newMockRepo())
	clinicID := uuid.New()
	staff := billingStaff(clinicID)
	patientID := uuid.New()
	mine := issued(t, svc, staff, clinicID, patientID)
	issued(t, svc, staff, clinicID, uuid.New())

	patient := &auth.Principal{ID: patientID, Type: "user", Role: auth.RolePatient, ClinicID: &clinicID}
	out, total, err := svc.List(context.Background(), patient, ListFilter{}, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(out) != 1 || out[0].ID != mine.ID {
		t.Fatalf("patient list = %d invoices, want own only", len(out))
	}

	other := issued(t, svc, staff, clinicID, uuid.New())
	if _, err := svc.Get(context.Background(), patient, other.ID); err == nil {
		t.Fatal("patient read another patient's invoice")
	}
	if _, err := svc.Get(context.Background(), patient, mine.ID); err != nil {
		t.Fatalf("Get own invoice: %v", err)
	}
}

func TestListScopesClinicBoundCaller(t *testing.T) {
	svc := NewService(newMockRepo())
	clinicA := uuid.New()
	clinicB := uuid.New()
	staffA := billingStaff(clinicA)
	issued(t, svc, staffA, clinicA, uuid.New())
	issued(t, svc, billingStaff(clinicB), clinicB, uuid.New())

	out, _, err := svc.List(context.Background(), staffA, ListFilter{ClinicID: &clinicB}, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, inv := range out {
		if inv.ClinicID != clinicA {
			t.Fatalf("clinic-bound caller saw invoice for clinic %s", inv.ClinicID)
		}
	}
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
}
