package config

import (
	"os"
	"testing"
)

func TestLoadWithNoPathAppliesEnvOverridesOverDefaults(t *testing.T) {
	os.Setenv("THRESHOLD", "4")
	os.Setenv("OWN_ID", "validator-x")
	defer os.Unsetenv("THRESHOLD")
	defer os.Unsetenv("OWN_ID")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threshold != 4 {
		t.Fatalf("want env-overridden threshold 4, got %d", cfg.Threshold)
	}
	if cfg.OwnID != "validator-x" {
		t.Fatalf("want env-overridden own_id, got %q", cfg.OwnID)
	}
	if cfg.Participants != 5 {
		t.Fatalf("want default participants 5, got %d", cfg.Participants)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/to/config.yaml")
	if err != nil {
		t.Fatalf("Load should tolerate a missing file, got: %v", err)
	}
	if cfg.Threshold != Default().Threshold {
		t.Fatalf("want default threshold, got %d", cfg.Threshold)
	}
}

func TestValidateRejectsThresholdBelowMinimum(t *testing.T) {
	cfg := Default()
	cfg.Threshold = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for threshold below MinThreshold")
	}
}

func TestValidateRejectsParticipantsMismatchedWithValidatorList(t *testing.T) {
	cfg := Default()
	cfg.Validators = []string{"a", "b", "c"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when participants count mismatches validators list")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected defaults to validate cleanly, got: %v", err)
	}
}

func TestLoadAppliesTLSEnvOverrides(t *testing.T) {
	os.Setenv("TLS_CERT_FILE", "/etc/certen/tls.crt")
	os.Setenv("TLS_KEY_FILE", "/etc/certen/tls.key")
	defer os.Unsetenv("TLS_CERT_FILE")
	defer os.Unsetenv("TLS_KEY_FILE")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TLSCertFile != "/etc/certen/tls.crt" || cfg.TLSKeyFile != "/etc/certen/tls.key" {
		t.Fatalf("want env-overridden TLS paths, got cert=%q key=%q", cfg.TLSCertFile, cfg.TLSKeyFile)
	}
	if cfg.TLSClientCAFile != "" {
		t.Fatalf("want empty default client CA, got %q", cfg.TLSClientCAFile)
	}
}
