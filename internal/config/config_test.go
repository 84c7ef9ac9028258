package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:pingpong.db" {
		t.Fatalf("expected default DSN, got %q", cfg.SQLiteDSN)
	}
	if len(cfg.AdminStudentIDs) != 0 {
		t.Fatalf("expected empty admin allow-list, got %v", cfg.AdminStudentIDs)
	}
	if cfg.AuthRateLimit != 5 || cfg.AuthRateBurst != 10 {
		t.Fatalf("unexpected rate limit defaults %v/%d", cfg.AuthRateLimit, cfg.AuthRateBurst)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected 10s shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PINGPONG_HTTP_PORT", "9090")
	t.Setenv("PINGPONG_SQLITE_DSN", "file:/tmp/test.db")
	t.Setenv("PINGPONG_ADMIN_STUDENT_IDS", "9001,9002")
	t.Setenv("PINGPONG_AUTH_RATE_LIMIT", "2.5")
	t.Setenv("PINGPONG_AUTH_RATE_BURST", "4")
	t.Setenv("PINGPONG_SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:/tmp/test.db" {
		t.Fatalf("expected overridden DSN, got %q", cfg.SQLiteDSN)
	}
	if len(cfg.AdminStudentIDs) != 2 || cfg.AdminStudentIDs[0] != "9001" || cfg.AdminStudentIDs[1] != "9002" {
		t.Fatalf("expected admin allow-list [9001 9002], got %v", cfg.AdminStudentIDs)
	}
	if cfg.AuthRateLimit != 2.5 || cfg.AuthRateBurst != 4 {
		t.Fatalf("unexpected rate limit overrides %v/%d", cfg.AuthRateLimit, cfg.AuthRateBurst)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Fatalf("expected 30s shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]struct {
		key, value string
	}{
		"non-numeric port": {"PINGPONG_HTTP_PORT", "not-a-port"},
		"zero port":        {"PINGPONG_HTTP_PORT", "0"},
		"port too large":   {"PINGPONG_HTTP_PORT", "70000"},
		"zero rate":        {"PINGPONG_AUTH_RATE_LIMIT", "0"},
		"negative burst":   {"PINGPONG_AUTH_RATE_BURST", "-1"},
		"bad duration":     {"PINGPONG_SHUTDOWN_TIMEOUT", "soon"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%q to be rejected", tc.key, tc.value)
			}
		})
	}
}
