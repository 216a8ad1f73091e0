package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost/vendtrustd")
	t.Setenv("ADMIN_JWT_SECRET", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("listen_addr = %s, want %s", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.SessionTTL != DefaultSessionTTL {
		t.Fatalf("session_ttl = %v, want %v", cfg.SessionTTL, DefaultSessionTTL)
	}
	if cfg.TimestampSkew != DefaultTimestampSkew {
		t.Fatalf("timestamp_skew = %v, want %v", cfg.TimestampSkew, DefaultTimestampSkew)
	}
	if cfg.SessionSliding || cfg.SessionSingleActive {
		t.Fatal("session policies default to off")
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("ADMIN_JWT_SECRET", "")

	if _, err := Load(""); !errors.Is(err, ErrMissingDatabaseDSN) {
		t.Fatalf("err = %v, want ErrMissingDatabaseDSN", err)
	}

	t.Setenv("DATABASE_DSN", "memory")
	if _, err := Load(""); !errors.Is(err, ErrMissingAdminJWTSecret) {
		t.Fatalf("err = %v, want ErrMissingAdminJWTSecret", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("listen_addr: \":9999\"\nsession_ttl: 30m\nsession_sliding: true\ndatabase_dsn: postgres://file/db\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ADMIN_JWT_SECRET", "secret")
	t.Setenv("DATABASE_DSN", "postgres://env/db")
	t.Setenv("SESSION_TTL", "45m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("listen_addr = %s, want file value", cfg.ListenAddr)
	}
	if !cfg.SessionSliding {
		t.Fatal("session_sliding must come from the file")
	}
	if cfg.DatabaseDSN != "postgres://env/db" {
		t.Fatalf("database_dsn = %s, env must win over file", cfg.DatabaseDSN)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Fatalf("session_ttl = %v, env must win over file", cfg.SessionTTL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("missing config file must error")
	}
}
