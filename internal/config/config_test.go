package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("MACHINEPARK_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("MACHINEPARK_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("unexpected default backend: %q", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected sqlite DSN default to be applied")
	}
}

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("MACHINEPARK_JWT_SIGNING_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail without a signing key")
	}
}

func TestLoadRequiresDSNForServerBackends(t *testing.T) {
	t.Setenv("MACHINEPARK_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("MACHINEPARK_DB_BACKEND", "postgres")
	t.Setenv("MACHINEPARK_DB_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail without a postgres DSN")
	}

	t.Setenv("MACHINEPARK_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	if _, err := Load(); err != nil {
		t.Fatalf("expected config load with DSN to succeed: %v", err)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("MACHINEPARK_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("MACHINEPARK_DB_BACKEND", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to reject unknown backend")
	}
}

func TestLoadProductionRequiresStrongSigningKey(t *testing.T) {
	t.Setenv("MACHINEPARK_ENV", "production")
	t.Setenv("MACHINEPARK_JWT_SIGNING_KEY", "short")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config load to fail with a short signing key")
	}

	t.Setenv("MACHINEPARK_JWT_SIGNING_KEY", "long-enough-signing-key")
	if _, err := Load(); err != nil {
		t.Fatalf("expected production config load to succeed: %v", err)
	}
}
