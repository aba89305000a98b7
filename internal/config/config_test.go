package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "MIGRATIONS", "TOKEN_TTL_HOURS", "LOG_CONFIG"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected port 8080 got %s", cfg.Server.Port)
	}
	if cfg.Database.IsSQLite() {
		t.Fatalf("expected postgres by default")
	}
	if cfg.App.Migrations {
		t.Fatalf("expected migrations off by default")
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h token ttl got %v", cfg.Auth.TokenTTL)
	}
	if cfg.App.LogConfig != "<root>=INFO" {
		t.Fatalf("unexpected log config %q", cfg.App.LogConfig)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("MIGRATIONS", "yes")
	t.Setenv("TOKEN_TTL_HOURS", "2")
	t.Setenv("DB_PORT", "not-a-number")
	cfg := Load()
	if !cfg.Database.IsSQLite() {
		t.Fatalf("expected sqlite driver")
	}
	if !cfg.App.Migrations {
		t.Fatalf("expected migrations on")
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Fatalf("expected 2h got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Database.Port != 5432 {
		t.Fatalf("expected fallback port 5432 got %d", cfg.Database.Port)
	}
}

func TestDatabaseURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	if got := d.URL(); got != "postgres://u:p@db:5433/n?sslmode=disable" {
		t.Fatalf("unexpected url %s", got)
	}
	if got := d.DSN(); got != "host=db port=5433 user=u password=p dbname=n sslmode=disable" {
		t.Fatalf("unexpected dsn %s", got)
	}
}
