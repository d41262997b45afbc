package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("environment = %s, want development", cfg.Environment)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Session.Timeout != 30*time.Minute {
		t.Errorf("session timeout = %v, want 30m", cfg.Session.Timeout)
	}
	if cfg.Session.SweepInterval != time.Minute {
		t.Errorf("sweep interval = %v, want 1m", cfg.Session.SweepInterval)
	}
	if cfg.Storage.BucketFundus != "arts-fundus" {
		t.Errorf("bucket = %s", cfg.Storage.BucketFundus)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ARTS_ENVIRONMENT", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("environment = %s, want production", cfg.Environment)
	}
}
