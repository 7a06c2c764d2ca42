package config

import (
	"testing"
	"time"
)

func TestDefaultsAreSafe(t *testing.T) {
	cfg := Default()

	if cfg.TradingConfig.Mode != "paper" {
		t.Errorf("default mode = %s, want paper", cfg.TradingConfig.Mode)
	}
	if !cfg.VenueConfig.MockMode {
		t.Error("default venue must be mock")
	}
	if cfg.RiskConfig.MaxDrawdown <= 0 || cfg.RiskConfig.MaxDrawdown >= 1 {
		t.Errorf("max drawdown = %v, want fraction in (0, 1)", cfg.RiskConfig.MaxDrawdown)
	}
	if cfg.CircuitConfig.CircuitTimeout() != 30*time.Second {
		t.Errorf("circuit timeout = %v, want 30s", cfg.CircuitConfig.CircuitTimeout())
	}
	if cfg.RateLimitConfig.Window() != time.Second {
		t.Errorf("rate limit window = %v, want 1s", cfg.RateLimitConfig.Window())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRADING_MODE", "live")
	t.Setenv("RISK_MAX_DRAWDOWN", "0.25")
	t.Setenv("CIRCUIT_FAILURE_THRESHOLD", "3")
	t.Setenv("VENUE_MOCK_MODE", "false")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.TradingConfig.Mode != "live" {
		t.Errorf("mode = %s, want live", cfg.TradingConfig.Mode)
	}
	if cfg.RiskConfig.MaxDrawdown != 0.25 {
		t.Errorf("max drawdown = %v, want 0.25", cfg.RiskConfig.MaxDrawdown)
	}
	if cfg.CircuitConfig.FailureThreshold != 3 {
		t.Errorf("failure threshold = %d, want 3", cfg.CircuitConfig.FailureThreshold)
	}
	if cfg.VenueConfig.MockMode {
		t.Error("mock mode should be overridden off")
	}
	if cfg.LoggingConfig.Level != "DEBUG" {
		t.Errorf("log level = %s, want DEBUG", cfg.LoggingConfig.Level)
	}
}

func TestBadEnvValuesKeepDefaults(t *testing.T) {
	t.Setenv("RISK_MAX_DRAWDOWN", "not-a-number")
	t.Setenv("CIRCUIT_FAILURE_THRESHOLD", "many")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.RiskConfig.MaxDrawdown != 0.10 {
		t.Errorf("max drawdown = %v, want default 0.10", cfg.RiskConfig.MaxDrawdown)
	}
	if cfg.CircuitConfig.FailureThreshold != 5 {
		t.Errorf("failure threshold = %d, want default 5", cfg.CircuitConfig.FailureThreshold)
	}
}
