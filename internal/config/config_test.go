package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECURRENCE_CRON", "")
	t.Setenv("STRICT_BUDGET_GATE", "")
	t.Setenv("RECURRENCE_TIMEZONE", "")
	t.Setenv("RECURRENCE_TRIGGER_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RecurrenceCron != "0 1 * * *" {
		t.Errorf("expected default cron '0 1 * * *', got %q", cfg.RecurrenceCron)
	}
	if cfg.StrictBudgetGate {
		t.Error("expected strict gate to be off by default")
	}
	if cfg.RecurrenceLocation != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.RecurrenceLocation)
	}
	if cfg.RecurrenceTriggerKey != "" {
		t.Error("expected manual trigger to be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STRICT_BUDGET_GATE", "true")
	t.Setenv("RECURRENCE_ENABLED", "false")
	t.Setenv("RECURRENCE_TIMEZONE", "Europe/Rome")
	t.Setenv("JWT_EXPIRES_IN", "not-a-duration")
	t.Setenv("RECURRENCE_TRIGGER_KEY", "ops-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.StrictBudgetGate {
		t.Error("expected strict gate to be enabled")
	}
	if cfg.RecurrenceEnabled {
		t.Error("expected recurrence to be disabled")
	}
	if cfg.RecurrenceLocation.String() != "Europe/Rome" {
		t.Errorf("expected Europe/Rome, got %s", cfg.RecurrenceLocation)
	}
	if cfg.JWTExpirationDur != 24*time.Hour {
		t.Errorf("expected fallback 24h, got %s", cfg.JWTExpirationDur)
	}
	if cfg.RecurrenceTriggerKey != "ops-key" {
		t.Errorf("expected trigger key ops-key, got %q", cfg.RecurrenceTriggerKey)
	}
}

func TestGetEnvBoolInvalid(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	if got := getEnvBool("SOME_FLAG", true); !got {
		t.Error("expected default for invalid bool")
	}
}
