package clinic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type mockRepo struct {
	clinics  map[uuid.UUID]*Clinic
	renewals []*Renewal
}

func newMockRepo() *mockRepo {
	return &mockRepo{clinics: make(map[uuid.UUID]*Clinic)}
}

func (m *mockRepo) Create(_ context.Context, c *Clinic) error {
	c.ID = uuid.New()
	if c.Validity != nil {
		c.Validity.ID = uuid.New()
		c.Validity.ClinicID = c.ID
	}
	m.clinics[c.ID] = c
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	c, ok := m.clinics[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

func (m *mockRepo) GetByAdminEmail(_ context.Context, email string) (*Clinic, error) {
	for _, c := range m.clinics {
		if c.AdminEmail == email {
			return c, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockRepo) Update(_ context.Context, c *Clinic) error {
	if _, ok := m.clinics[c.ID]; !ok {
		return errors.New("not found")
	}
	m.clinics[c.ID] = c
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.clinics, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Clinic, int, error) {
	var out []*Clinic
	for _, c := range m.clinics {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockRepo) UpdateValidity(_ context.Context, v *ValidityPeriod) error {
	for _, c := range m.clinics {
		if c.Validity != nil && c.Validity.ID == v.ID {
			c.Validity = v
			return nil
		}
	}
	return errors.New("not found")
}

func (m *mockRepo) AddRenewal(_ context.Context, r *Renewal) error {
	r.ID = uuid.New()
	m.renewals = append(m.renewals, r)
	return nil
}

func (m *mockRepo) AddAdditionalUser(_ context.Context, au *AdditionalUser) error {
	c, ok := m.clinics[au.ClinicID]
	if !ok {
		return errors.New("not found")
	}
	au.ID = uuid.New()
	c.AdditionalUsers = append(c.AdditionalUsers, *au)
	return nil
}

func (m *mockRepo) RemoveAdditionalUser(_ context.Context, clinicID, id uuid.UUID) error {
	c, ok := m.clinics[clinicID]
	if !ok {
		return ErrUserNotFound
	}
	for i, au := range c.AdditionalUsers {
		if au.ID == id {
			c.AdditionalUsers = append(c.AdditionalUsers[:i], c.AdditionalUsers[i+1:]...)
			return nil
		}
	}
	return ErrUserNotFound
}

func (m *mockRepo) SetResetOTP(_ context.Context, id uuid.UUID, code *string, expires *time.Time) error {
	c, ok := m.clinics[id]
	if !ok {
		return errors.New("not found")
	}
	c.ResetOTPCode = code
	c.ResetOTPExpires = expires
	return nil
}

func (m *mockRepo) SetAdminPassword(_ context.Context, id uuid.UUID, hash string) error {
	c, ok := m.clinics[id]
	if !ok {
		return errors.New("not found")
	}
	c.AdminPasswordHash = hash
	return nil
}

func newTestService(repo Repository) *Service {
	s := NewService(repo, bcrypt.MinCost)
	s.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return s
}

func registered(t *testing.T, svc *Service, months int) *Clinic {
	t.Helper()
	c := &Clinic{Name: "Sunrise", AdminName: "Dr. Lee", AdminEmail: "Lee@Sunrise.com"}
	if err := svc.Register(context.Background(), c, "s3cret", months); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return c
}

func TestRegisterHashesPasswordAndNormalizesEmail(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	c := registered(t, svc, 12)

	if c.AdminEmail != "lee@sunrise.com" {
		t.Fatalf("email = %q", c.AdminEmail)
	}
	if c.AdminPasswordHash == "s3cret" || c.AdminPasswordHash == "" {
		t.Fatal("password was not hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.AdminPasswordHash), []byte("s3cret")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestRegisterValidityWindow(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	c := registered(t, svc, 18)

	v := c.Validity
	if v == nil {
		t.Fatal("validity not created")
	}
	if v.DurationMonths != 18 {
		t.Fatalf("duration = %d", v.DurationMonths)
	}
	wantEnd := v.StartDate.AddDate(0, 18, 0)
	if !v.EndDate.Equal(wantEnd) {
		t.Fatalf("end = %s, want %s", v.EndDate, wantEnd)
	}
}

func TestRegisterRejectsShortValidity(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	c := &Clinic{Name: "Sunrise", AdminName: "Dr. Lee", AdminEmail: "lee@sunrise.com"}
	err := svc.Register(context.Background(), c, "x", 6)
	if !errors.Is(err, ErrValidityTooShort) {
		t.Fatalf("err = %v", err)
	}
}

func TestRenewRejectsShortExtension(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	c := registered(t, svc, 12)

	// 11 months past the current end is one month short
	short := c.Validity.EndDate.AddDate(0, 11, 0)
	_, err := svc.Renew(context.Background(), c.ID, short, uuid.New(), "")
	if !errors.Is(err, ErrRenewalTooShort) {
		t.Fatalf("err = %v", err)
	}
	if len(repo.renewals) != 0 {
		t.Fatal("rejected renewal must not append history")
	}
}

func TestRenewAcceptsExactMinimum(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	c := registered(t, svc, 12)

	prevEnd := c.Validity.EndDate
	newEnd := prevEnd.AddDate(0, 12, 0)
	admin := uuid.New()
	v, err := svc.Renew(context.Background(), c.ID, newEnd, admin, "annual renewal")
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if !v.EndDate.Equal(newEnd) {
		t.Fatalf("end = %s", v.EndDate)
	}
	if v.IsExpired {
		t.Fatal("cached flag must clear on renewal")
	}
	if len(repo.renewals) != 1 {
		t.Fatalf("renewals = %d, want 1", len(repo.renewals))
	}
	rn := repo.renewals[0]
	if !rn.PreviousEndDate.Equal(prevEnd) || !rn.NewEndDate.Equal(newEnd) || rn.RenewedBy != admin {
		t.Fatalf("renewal row = %+v", rn)
	}
	if rn.Reason == nil || *rn.Reason != "annual renewal" {
		t.Fatalf("reason = %v", rn.Reason)
	}
}

func TestRenewMinimumAppliesEvenWhenLapsed(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	c := registered(t, svc, 12)

	// push the clock well past expiry; the floor is still end+12mo
	svc.now = func() time.Time { return c.Validity.EndDate.AddDate(2, 0, 0) }
	_, err := svc.Renew(context.Background(), c.ID, c.Validity.EndDate.AddDate(0, 6, 0), uuid.New(), "")
	if !errors.Is(err, ErrRenewalTooShort) {
		t.Fatalf("err = %v", err)
	}
}

func TestAddUserRejectsDuplicateEmail(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	c := registered(t, svc, 12)

	if err := svc.AddUser(context.Background(), c.ID, &AdditionalUser{Name: "Amy", Email: "amy@sunrise.com", Role: "nurse"}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	err := svc.AddUser(context.Background(), c.ID, &AdditionalUser{Name: "Amy 2", Email: "AMY@sunrise.com", Role: "nurse"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoveUserScopedToOwnClinic(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	a := registered(t, svc, 12)
	b := registered(t, svc, 12)

	bu := &AdditionalUser{Name: "Ben", Email: "ben@lakeside.com", Role: "nurse"}
	if err := svc.AddUser(context.Background(), b.ID, bu); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	// Removing through another clinic's id must not touch the row.
	err := svc.RemoveUser(context.Background(), a.ID, bu.ID)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
	if len(b.AdditionalUsers) != 1 {
		t.Fatalf("clinic B users = %d, want 1", len(b.AdditionalUsers))
	}

	if err := svc.RemoveUser(context.Background(), b.ID, bu.ID); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if len(b.AdditionalUsers) != 0 {
		t.Fatalf("clinic B users = %d, want 0", len(b.AdditionalUsers))
	}
}
