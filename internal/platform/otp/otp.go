// Package otp generates and validates short-lived one-time codes used to
// step up authentication. Codes are purpose-scoped: registration and
// password-reset codes are 6 digits with a 10 minute window, login codes are
// 4 digits with a 5 minute window. The shorter login code trades entropy for
// faster entry under the tighter window.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeLogin    Purpose = "login"
	PurposeReset    Purpose = "reset"
)

var (
	// ErrNotFound means no code is stored for the principal.
	ErrNotFound = errors.New("otp: no code issued")
	// ErrInvalid covers both a mismatched and an expired code. The two cases
	// are deliberately collapsed so the caller cannot leak expiry timing.
	ErrInvalid = errors.New("otp: invalid or expired code")
)

// Code is a generated one-time code with its absolute expiry.
type Code struct {
	Value   string
	Expires time.Time
}

type Engine struct {
	registerTTL time.Duration
	loginTTL    time.Duration
	resetTTL    time.Duration

	now func() time.Time
}

func NewEngine(registerTTL, loginTTL, resetTTL time.Duration) *Engine {
	return &Engine{
		registerTTL: registerTTL,
		loginTTL:    loginTTL,
		resetTTL:    resetTTL,
		now:         time.Now,
	}
}

// Generate produces a fresh numeric code for the given purpose. Any prior
// unconsumed code of the same purpose is superseded when the caller stores
// the new pair, so codes never stack.
func (e *Engine) Generate(purpose Purpose) (Code, error) {
	digits := 6
	ttl := e.registerTTL
	switch purpose {
	case PurposeLogin:
		digits = 4
		ttl = e.loginTTL
	case PurposeReset:
		ttl = e.resetTTL
	case PurposeRegister:
	default:
		return Code{}, fmt.Errorf("otp: unknown purpose %q", purpose)
	}

	value, err := randomDigits(digits)
	if err != nil {
		return Code{}, fmt.Errorf("otp: generate: %w", err)
	}
	return Code{Value: value, Expires: e.now().Add(ttl)}, nil
}

// Verify checks a supplied code against the stored pair. The engine never
// clears the stored fields itself; consumption is the caller's decision and
// must happen immediately after a successful verify to prevent replay.
func (e *Engine) Verify(stored *string, expires *time.Time, supplied string) error {
	if stored == nil || *stored == "" {
		return ErrNotFound
	}
	if expires == nil || !e.now().Before(*expires) {
		return ErrInvalid
	}
	// Exact string comparison: "0042" and "42" are different codes.
	if *stored != supplied {
		return ErrInvalid
	}
	return nil
}

func randomDigits(n int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < n; i++ {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}
