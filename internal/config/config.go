// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database settings.
	DatabasePath string // SQLite file path, or ":memory:" for ephemeral runs.

	// Scenario catalog settings.
	ScenarioFile string // Optional JSON scenario catalog; built-in defaults when empty.
	RandSeed     uint64 // Seed for scenario selection; 0 derives one from the clock.

	// Workflow defaults.
	DefaultTargetCycles     int
	DefaultTargetCompliance float64

	// Verifier settings.
	VerifyThreshold float64

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64 // Maximum request body size in bytes.
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                    envInt("JUNSHU_PORT", 8080),
		ReadTimeout:             envDuration("JUNSHU_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:            envDuration("JUNSHU_WRITE_TIMEOUT", 30*time.Second),
		DatabasePath:            envStr("JUNSHU_DB_PATH", "junshu.db"),
		ScenarioFile:            envStr("JUNSHU_SCENARIO_FILE", ""),
		RandSeed:                uint64(envInt("JUNSHU_RAND_SEED", 0)),
		DefaultTargetCycles:     envInt("JUNSHU_DEFAULT_TARGET_CYCLES", 50),
		DefaultTargetCompliance: envFloat("JUNSHU_DEFAULT_TARGET_COMPLIANCE", 0.85),
		VerifyThreshold:         envFloat("JUNSHU_VERIFY_THRESHOLD", 0.7),
		OTELEndpoint:            envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:            envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:             envStr("OTEL_SERVICE_NAME", "junshu"),
		LogLevel:                envStr("JUNSHU_LOG_LEVEL", "info"),
		MaxRequestBodyBytes:     int64(envInt("JUNSHU_MAX_REQUEST_BODY_BYTES", 1*1024*1024)), // 1 MB default
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and in range.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("config: JUNSHU_DB_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: JUNSHU_PORT must be in (0, 65535]")
	}
	if c.VerifyThreshold <= 0 || c.VerifyThreshold > 1 {
		return fmt.Errorf("config: JUNSHU_VERIFY_THRESHOLD must be in (0, 1]")
	}
	if c.DefaultTargetCompliance <= 0 || c.DefaultTargetCompliance > 1 {
		return fmt.Errorf("config: JUNSHU_DEFAULT_TARGET_COMPLIANCE must be in (0, 1]")
	}
	if c.DefaultTargetCycles <= 0 {
		return fmt.Errorf("config: JUNSHU_DEFAULT_TARGET_CYCLES must be positive")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: JUNSHU_MAX_REQUEST_BODY_BYTES must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
