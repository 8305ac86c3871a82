// Package identity implements the authentication flows: staff and patient
// registration with email verification, two-step password+code login,
// password reset, and the clinic account flows with the subscription
// validity gate. It also resolves bearer tokens back into principals for
// the authorization middleware.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/domain/clinic"
	"github.com/clinicore/clinicore/internal/domain/session"
	"github.com/clinicore/clinicore/internal/domain/user"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/notification"
	"github.com/clinicore/clinicore/internal/platform/otp"
	"github.com/clinicore/clinicore/internal/platform/token"
)

var (
	// ErrInvalidCredentials is deliberately generic: the same answer for an
	// unknown email and a wrong password, so accounts cannot be enumerated.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email not verified, complete registration first")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrEmailTaken         = errors.New("an account with this email already exists")
)

type Service struct {
	users   user.Repository
	clinics *clinic.Service
	codes   *otp.Engine
	tokens  *token.Issuer
	mailer  *notification.Mailer
	tracker *session.Tracker

	bcryptCost int
	// devEcho returns generated codes in API responses, for local
	// development without a mail server.
	devEcho bool
	logger  zerolog.Logger
	now     func() time.Time
}

type Options struct {
	BcryptCost int
	DevEcho    bool
}

func NewService(users user.Repository, clinics *clinic.Service, codes *otp.Engine,
	tokens *token.Issuer, mailer *notification.Mailer, tracker *session.Tracker,
	opts Options, logger zerolog.Logger) *Service {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:      users,
		clinics:    clinics,
		codes:      codes,
		tokens:     tokens,
		mailer:     mailer,
		tracker:    tracker,
		bcryptCost: cost,
		devEcho:    opts.DevEcho,
		logger:     logger.With().Str("component", "identity").Logger(),
		now:        time.Now,
	}
}

// sendCode mails a one-time code. Delivery is best-effort: a failed send is
// logged and the flow continues, because the code is already persisted and
// can be re-requested.
func (s *Service) sendCode(ctx context.Context, email, name string, purpose otp.Purpose, code otp.Code) {
	ttl := int(time.Until(code.Expires).Round(time.Minute) / time.Minute)
	if err := s.mailer.SendCode(ctx, email, name, purpose, code.Value, ttl); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Str("purpose", string(purpose)).Msg("code delivery failed")
	}
}

func (s *Service) echoCode(code otp.Code) string {
	if s.devEcho {
		return code.Value
	}
	return ""
}

// RegisterUser creates an unverified account and issues a registration code.
func (s *Service) RegisterUser(ctx context.Context, u *user.User, password string) (string, error) {
	if err := u.Validate(); err != nil {
		return "", err
	}
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	if existing, err := s.users.GetByEmail(ctx, u.Email); err == nil && existing != nil {
		return "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.IsActive = true
	u.IsVerified = false

	code, err := s.codes.Generate(otp.PurposeRegister)
	if err != nil {
		return "", err
	}
	u.OTPCode = &code.Value
	u.OTPExpires = &code.Expires

	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	s.sendCode(ctx, u.Email, u.Name, otp.PurposeRegister, code)
	return s.echoCode(code), nil
}

// VerifyRegistration consumes the registration code, marks the account
// verified and signs the caller in.
func (s *Service) VerifyRegistration(ctx context.Context, email, code string) (string, *user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, otp.ErrInvalid
	}
	if err := s.codes.Verify(u.OTPCode, u.OTPExpires, code); err != nil {
		return "", nil, err
	}
	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return "", nil, err
	}
	u.IsVerified = true
	u.OTPCode, u.OTPExpires = nil, nil

	t, err := s.tokens.IssueUser(u.ID)
	if err != nil {
		return "", nil, err
	}
	return t, u, nil
}

// Login checks the password and, when it matches, issues the short login
// code that VerifyLogin consumes.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	if !u.IsActive {
		return "", ErrAccountDisabled
	}
	if !u.IsVerified {
		return "", ErrNotVerified
	}

	code, err := s.codes.Generate(otp.PurposeLogin)
	if err != nil {
		return "", err
	}
	if err := s.users.SetOTP(ctx, u.ID, &code.Value, &code.Expires); err != nil {
		return "", err
	}
	s.sendCode(ctx, u.Email, u.Name, otp.PurposeLogin, code)
	return s.echoCode(code), nil
}

// VerifyLogin consumes the login code and returns a bearer token. Patient
// logins feed the session tracker; tracker failures never block the login.
func (s *Service) VerifyLogin(ctx context.Context, email, code string, info session.LoginInfo) (string, *user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, otp.ErrInvalid
	}
	if err := s.codes.Verify(u.OTPCode, u.OTPExpires, code); err != nil {
		return "", nil, err
	}
	if err := s.users.SetOTP(ctx, u.ID, nil, nil); err != nil {
		return "", nil, err
	}

	now := s.now().UTC()
	if err := s.users.StampLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn().Err(err).Stringer("user_id", u.ID).Msg("stamp last login failed")
	}
	u.LastLogin = &now

	if u.Role == auth.RolePatient {
		if info.Method == "" {
			info.Method = session.MethodOTP
		}
		s.tracker.RecordLogin(ctx, u.ID, info)
	}

	t, err := s.tokens.IssueUser(u.ID)
	if err != nil {
		return "", nil, err
	}
	return t, u, nil
}

// Logout records the end of a session. The duration is client-reported.
func (s *Service) Logout(ctx context.Context, p *auth.Principal, duration time.Duration) {
	if p.Type != token.TypeUser {
		return
	}
	s.tracker.RecordLogout(ctx, p.ID, duration)
}

// ForgotPassword issues a password-reset code for an existing account.
// Unknown emails get the same success acknowledgment with no code issued,
// so the endpoint cannot be used to probe which addresses have accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil
	}
	code, err := s.codes.Generate(otp.PurposeReset)
	if err != nil {
		return "", err
	}
	if err := s.users.SetResetOTP(ctx, u.ID, &code.Value, &code.Expires); err != nil {
		return "", err
	}
	s.sendCode(ctx, u.Email, u.Name, otp.PurposeReset, code)
	return s.echoCode(code), nil
}

// ResetPassword consumes the reset code and stores the rehashed password.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return otp.ErrInvalid
	}
	if err := s.codes.Verify(u.ResetOTPCode, u.ResetOTPExpires, code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, u.ID, string(hash)); err != nil {
		return err
	}
	return s.users.SetResetOTP(ctx, u.ID, nil, nil)
}

// RegisterClinic creates the tenant account and mails the welcome message.
func (s *Service) RegisterClinic(ctx context.Context, c *clinic.Clinic, password string, months int) error {
	if err := s.clinics.Register(ctx, c, password, months); err != nil {
		return err
	}
	if c.Validity != nil {
		if err := s.mailer.SendClinicWelcome(ctx, c.AdminEmail, c.AdminName, c.Name,
			c.Validity.EndDate.Format("2006-01-02")); err != nil {
			s.logger.Warn().Err(err).Str("email", c.AdminEmail).Msg("welcome mail failed")
		}
	}
	return nil
}

// LoginClinic checks the admin credentials and then the validity gate. The
// gate runs only after a successful credential match so an expired clinic
// gets the distinct contact-administrator answer, not invalid-credentials.
func (s *Service) LoginClinic(ctx context.Context, email, password string) (string, *clinic.Clinic, error) {
	c, err := s.clinics.GetByAdminEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !s.clinics.VerifyAdminPassword(c, password) {
		return "", nil, ErrInvalidCredentials
	}
	if !c.IsActive {
		return "", nil, ErrAccountDisabled
	}
	if c.Validity == nil || c.Validity.Expired(s.now().UTC()) {
		return "", nil, auth.ErrClinicExpired
	}

	t, err := s.tokens.IssueClinic(c.ID, c.AdminEmail)
	if err != nil {
		return "", nil, err
	}
	return t, c, nil
}

// ForgotClinicPassword issues a reset code for the clinic admin account.
// Unknown emails are acknowledged the same way as known ones.
func (s *Service) ForgotClinicPassword(ctx context.Context, email string) (string, error) {
	c, err := s.clinics.GetByAdminEmail(ctx, email)
	if err != nil {
		return "", nil
	}
	code, err := s.codes.Generate(otp.PurposeReset)
	if err != nil {
		return "", err
	}
	if err := s.clinics.SetResetOTP(ctx, c.ID, &code.Value, &code.Expires); err != nil {
		return "", err
	}
	s.sendCode(ctx, c.AdminEmail, c.AdminName, otp.PurposeReset, code)
	return s.echoCode(code), nil
}

// ResetClinicPassword consumes the reset code and stores the new password.
func (s *Service) ResetClinicPassword(ctx context.Context, email, code, newPassword string) error {
	c, err := s.clinics.GetByAdminEmail(ctx, email)
	if err != nil {
		return otp.ErrInvalid
	}
	if err := s.codes.Verify(c.ResetOTPCode, c.ResetOTPExpires, code); err != nil {
		return err
	}
	if err := s.clinics.SetAdminPassword(ctx, c.ID, newPassword); err != nil {
		return err
	}
	return s.clinics.SetResetOTP(ctx, c.ID, nil, nil)
}

// ResolvePrincipal re-hydrates the principal behind verified claims. Roles
// are never trusted from user tokens; the stored record wins.
func (s *Service) ResolvePrincipal(ctx context.Context, claims *token.Claims) (*auth.Principal, error) {
	id := claims.SubjectID()
	if id == uuid.Nil {
		return nil, token.ErrInvalid
	}

	switch claims.Type {
	case token.TypeUser:
		u, err := s.users.GetByID(ctx, id)
		if err != nil || !u.IsActive {
			return nil, token.ErrInvalid
		}
		return &auth.Principal{
			ID:       u.ID,
			Type:     token.TypeUser,
			Role:     u.Role,
			ClinicID: u.ClinicID,
			Email:    u.Email,
			Name:     u.Name,
		}, nil

	case token.TypeClinic:
		c, err := s.clinics.Get(ctx, id)
		if err != nil || !c.IsActive {
			return nil, token.ErrInvalid
		}
		if c.Validity == nil || c.Validity.Expired(s.now().UTC()) {
			return nil, auth.ErrClinicExpired
		}
		cid := c.ID
		return &auth.Principal{
			ID:       c.ID,
			Type:     token.TypeClinic,
			Role:     auth.RoleClinicAdmin,
			ClinicID: &cid,
			Email:    c.AdminEmail,
			Name:     c.AdminName,
		}, nil

	default:
		return nil, token.ErrInvalid
	}
}
