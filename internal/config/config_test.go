package config

import (
	"testing"
	"time"
)

func baseConfig() *Config {
	return &Config{
		Port:              "8000",
		Env:               "development",
		DatabaseURL:       "postgres://localhost/clinic",
		JWTSecret:         "dev-insecure-secret",
		TokenTTLHours:     168,
		OTPRegisterTTLMin: 10,
		OTPLoginTTLMin:    5,
		OTPResetTTLMin:    10,
		BcryptCost:        10,
	}
}

func TestValidate_DevDefaults(t *testing.T) {
	cfg := baseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := baseConfig()
	cfg.Env = "production"
	cfg.JWTSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT_SECRET in production")
	}

	cfg.JWTSecret = "dev-insecure-secret"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for development default secret in production")
	}

	cfg.JWTSecret = "a-real-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BcryptCostBounds(t *testing.T) {
	cfg := baseConfig()
	cfg.BcryptCost = 3
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bcrypt cost below minimum")
	}
	cfg.BcryptCost = 32
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bcrypt cost above maximum")
	}
}

func TestValidate_SMTPFromRequired(t *testing.T) {
	cfg := baseConfig()
	cfg.SMTPHost = "smtp.example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when SMTP_HOST set without SMTP_FROM")
	}
	cfg.SMTPFrom = "noreply@example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := baseConfig()
	if cfg.TokenTTL() != 168*time.Hour {
		t.Errorf("expected 168h token ttl, got %v", cfg.TokenTTL())
	}
	if cfg.OTPLoginTTL() != 5*time.Minute {
		t.Errorf("expected 5m login otp ttl, got %v", cfg.OTPLoginTTL())
	}
	if cfg.OTPRegisterTTL() != 10*time.Minute {
		t.Errorf("expected 10m register otp ttl, got %v", cfg.OTPRegisterTTL())
	}
}
