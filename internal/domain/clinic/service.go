package clinic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TxRunner executes fn atomically. db.RunInTx satisfies it; tests leave it
// unset and run fn directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo       Repository
	inTx       TxRunner
	bcryptCost int
	now        func() time.Time
}

func NewService(repo Repository, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		inTx:       func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) },
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// WithTxRunner makes multi-row writes run inside a database transaction.
func (s *Service) WithTxRunner(run TxRunner) *Service {
	s.inTx = run
	return s
}

// Register creates the clinic account with a hashed admin password and a
// validity period of the given number of months starting now.
func (s *Service) Register(ctx context.Context, c *Clinic, password string, months int) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("admin password is required")
	}
	if months < MinValidityMonths {
		return ErrValidityTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	c.AdminPasswordHash = string(hash)
	c.AdminEmail = strings.ToLower(strings.TrimSpace(c.AdminEmail))
	if c.AdminUsername == "" {
		c.AdminUsername = c.AdminEmail
	}
	c.IsActive = true

	start := s.now().UTC()
	c.Validity = &ValidityPeriod{
		StartDate:      start,
		EndDate:        start.AddDate(0, months, 0),
		DurationMonths: months,
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, c)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByAdminEmail(ctx context.Context, email string) (*Clinic, error) {
	return s.repo.GetByAdminEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.List(ctx, activeOnly, limit, offset)
}

func (s *Service) Update(ctx context.Context, c *Clinic) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.IsActive = false
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Renew extends the subscription. The new end date must be at least twelve
// months past the current end date, regardless of how much of the current
// period remains. Exactly one history row is appended per successful call.
func (s *Service) Renew(ctx context.Context, clinicID uuid.UUID, newEndDate time.Time, renewedBy uuid.UUID, reason string) (*ValidityPeriod, error) {
	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	v := c.Validity
	if v == nil {
		return nil, fmt.Errorf("clinic %s has no validity period", clinicID)
	}

	minEnd := v.EndDate.AddDate(0, MinValidityMonths, 0)
	if newEndDate.Before(minEnd) {
		return nil, fmt.Errorf("%w: earliest acceptable end date is %s",
			ErrRenewalTooShort, minEnd.Format("2006-01-02"))
	}

	rn := &Renewal{
		ValidityID:      v.ID,
		PreviousEndDate: v.EndDate,
		NewEndDate:      newEndDate,
		RenewedBy:       renewedBy,
		RenewalDate:     s.now().UTC(),
	}
	if reason != "" {
		rn.Reason = &reason
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.AddRenewal(ctx, rn); err != nil {
			return err
		}
		v.EndDate = newEndDate
		v.DurationMonths = monthsBetween(v.StartDate, newEndDate)
		v.IsExpired = false
		return s.repo.UpdateValidity(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	v.RenewalHistory = append(v.RenewalHistory, *rn)
	return v, nil
}

// AddUser appends a named additional user. Emails are unique within the
// clinic; uniqueness is checked against the loaded aggregate.
func (s *Service) AddUser(ctx context.Context, clinicID uuid.UUID, au *AdditionalUser) error {
	if strings.TrimSpace(au.Name) == "" {
		return fmt.Errorf("name is required")
	}
	au.Email = strings.ToLower(strings.TrimSpace(au.Email))
	if au.Email == "" {
		return fmt.Errorf("email is required")
	}

	c, err := s.repo.GetByID(ctx, clinicID)
	if err != nil {
		return err
	}
	for _, existing := range c.AdditionalUsers {
		if strings.EqualFold(existing.Email, au.Email) {
			return ErrEmailTaken
		}
	}
	au.ClinicID = clinicID
	return s.repo.AddAdditionalUser(ctx, au)
}

// RemoveUser deletes an additional user, but only when it belongs to the
// given clinic. Deleting another clinic's user fails with ErrUserNotFound.
func (s *Service) RemoveUser(ctx context.Context, clinicID, id uuid.UUID) error {
	return s.repo.RemoveAdditionalUser(ctx, clinicID, id)
}

// VerifyAdminPassword checks a plaintext password against the stored hash.
func (s *Service) VerifyAdminPassword(c *Clinic, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.AdminPasswordHash), []byte(password)) == nil
}

// SetResetOTP stores or clears the admin password-reset code.
func (s *Service) SetResetOTP(ctx context.Context, id uuid.UUID, code *string, expires *time.Time) error {
	return s.repo.SetResetOTP(ctx, id, code, expires)
}

// SetAdminPassword rehashes and stores a new admin password.
func (s *Service) SetAdminPassword(ctx context.Context, id uuid.UUID, password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.SetAdminPassword(ctx, id, string(hash))
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
