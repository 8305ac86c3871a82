// Package token mints and parses the signed bearer credential that binds a
// principal identity to a request. Tokens are self-contained HS256 JWTs, so
// verification costs one signature check plus one record lookup by the
// caller; there is no server-side session store and therefore no revocation
// before natural expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeUser   = "user"
	TypeClinic = "clinic"

	// ClinicAdminRole is synthesized for clinic tokens; it is never stored
	// on a record.
	ClinicAdminRole = "clinic_admin"
)

var (
	ErrInvalid = errors.New("token: invalid")
	ErrExpired = errors.New("token: expired")
)

type Claims struct {
	jwt.RegisteredClaims
	Type  string `json:"typ"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
}

type Issuer struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueUser mints a token for an individual user. Role and clinic are not
// encoded; verification re-hydrates them from the stored record so a role
// change takes effect on the next request rather than the next login.
func (i *Issuer) IssueUser(id uuid.UUID) (string, error) {
	return i.sign(Claims{
		RegisteredClaims: i.registered(id),
		Type:             TypeUser,
	})
}

// IssueClinic mints a token for a clinic principal. The clinic_admin role is
// encoded directly so that verification does not need to re-derive it.
func (i *Issuer) IssueClinic(id uuid.UUID, email string) (string, error) {
	return i.sign(Claims{
		RegisteredClaims: i.registered(id),
		Type:             TypeClinic,
		Role:             ClinicAdminRole,
		Email:            email,
	})
}

func (i *Issuer) registered(id uuid.UUID) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Subject:   id.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
}

func (i *Issuer) sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

// Parse validates signature and lifetime and returns the embedded claims.
// Expired tokens surface as ErrExpired; every other failure, including an
// unknown subject format, collapses into ErrInvalid.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !t.Valid {
		return nil, ErrInvalid
	}
	if claims.Type != TypeUser && claims.Type != TypeClinic {
		return nil, ErrInvalid
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalid
	}
	return claims, nil
}

// SubjectID returns the parsed subject UUID. Parse has already validated the
// format.
func (c *Claims) SubjectID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}
