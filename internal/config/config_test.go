package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Server.Port != "8000" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := []byte("server:\n  port: \"9000\"\ndatabase:\n  driver: postgres\n  host: db\nauth:\n  token_expiry: 5m\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DB_HOST", "override")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Database.Driver != "postgres" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Database.Host != "override" || cfg.Auth.Secret != "s3cret" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Auth.Admin.Username != "admin" {
		t.Fatalf("defaults lost for unset keys: %+v", cfg.Auth)
	}
	if got := TTLDuration(cfg.Auth.TokenExpiry, time.Minute); got != 5*time.Minute {
		t.Fatalf("token expiry = %v", got)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("server: [\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("empty: %v", got)
	}
	if got := TTLDuration("garbage", time.Second); got != time.Second {
		t.Fatalf("invalid: %v", got)
	}
	if got := TTLDuration("2m", time.Second); got != 2*time.Minute {
		t.Fatalf("valid: %v", got)
	}
}

func TestInsecureDefaults(t *testing.T) {
	cfg := Default()
	if got := cfg.InsecureDefaults(); len(got) != 3 {
		t.Fatalf("defaults warnings = %q", got)
	}
	cfg.Auth.Secret = "s3cret"
	cfg.Auth.Admin.Password = "long-random"
	cfg.Auth.TestUser = User{}
	if got := cfg.InsecureDefaults(); len(got) != 0 {
		t.Fatalf("configured warnings = %q", got)
	}
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
}
