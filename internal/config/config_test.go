package config

import (
	"testing"
	"time"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if v := envInt("TEST_INT", 0); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	// TEST_INT_MISSING is not set.
	if v := envInt("TEST_INT_MISSING", 99); v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	if v := envInt("TEST_INT_BAD", 7); v != 7 {
		t.Fatalf("expected fallback 7 for non-integer value, got %d", v)
	}
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.65")
	if v := envFloat("TEST_FLOAT", 0.7); v != 0.65 {
		t.Fatalf("expected 0.65, got %v", v)
	}
	if v := envFloat("TEST_FLOAT_MISSING", 0.7); v != 0.7 {
		t.Fatalf("expected fallback 0.7, got %v", v)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	if !envBool("TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("TEST_BOOL_BAD", "yep")
	if envBool("TEST_BOOL_BAD", false) {
		t.Fatal("expected fallback false for unparseable value")
	}
	if !envBool("TEST_BOOL_MISSING", true) {
		t.Fatal("expected fallback true")
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "45s")
	if v := envDuration("TEST_DUR", time.Second); v != 45*time.Second {
		t.Fatalf("expected 45s, got %v", v)
	}
	t.Setenv("TEST_DUR_BAD", "five-seconds")
	if v := envDuration("TEST_DUR_BAD", 2*time.Second); v != 2*time.Second {
		t.Fatalf("expected fallback 2s, got %v", v)
	}
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	// With no env vars set, Load should succeed using all defaults.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed with defaults, got: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DatabasePath != "junshu.db" {
		t.Fatalf("expected default db path, got %q", cfg.DatabasePath)
	}
	if cfg.VerifyThreshold != 0.7 {
		t.Fatalf("expected default verify threshold 0.7, got %v", cfg.VerifyThreshold)
	}
	if cfg.DefaultTargetCompliance != 0.85 {
		t.Fatalf("expected default target compliance 0.85, got %v", cfg.DefaultTargetCompliance)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JUNSHU_PORT", "9090")
	t.Setenv("JUNSHU_DB_PATH", ":memory:")
	t.Setenv("JUNSHU_VERIFY_THRESHOLD", "0.6")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 || cfg.DatabasePath != ":memory:" || cfg.VerifyThreshold != 0.6 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DatabasePath = "" }},
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"threshold above one", func(c *Config) { c.VerifyThreshold = 1.5 }},
		{"compliance zero", func(c *Config) { c.DefaultTargetCompliance = 0 }},
		{"cycles negative", func(c *Config) { c.DefaultTargetCycles = -1 }},
		{"body bytes zero", func(c *Config) { c.MaxRequestBodyBytes = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}
