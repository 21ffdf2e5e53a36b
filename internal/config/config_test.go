package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("APP_DISPLAY_TIMEZONE", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %q", cfg.App.Addr())
	}
	if cfg.App.DisplayTimezone != "Asia/Manila" {
		t.Errorf("timezone = %q", cfg.App.DisplayTimezone)
	}
	if cfg.Auth.TokenTTL() != 24*time.Hour {
		t.Errorf("token ttl = %v", cfg.Auth.TokenTTL())
	}
	if cfg.Auth.CookieSecure {
		t.Error("cookie should not be secure outside production")
	}
	if cfg.App.AllowedOrigins != nil {
		t.Errorf("origins = %v, want nil", cfg.App.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "9090" {
		t.Errorf("port = %q", cfg.App.Port)
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Errorf("bcrypt cost should fall back to 10, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Postgres.RunMigrations {
		t.Error("migrations should be disabled")
	}
	if len(cfg.App.AllowedOrigins) != 2 || cfg.App.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("origins = %v", cfg.App.AllowedOrigins)
	}
}

func TestLoadRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for default secret in production")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("APP_DISPLAY_TIMEZONE", "Mars/Olympus_Mons")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
