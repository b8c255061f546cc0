package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigMergesEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  password: ${DB_SECRET}
billing:
  minor_unit: Cents
  reconcile_timeout: 5s
`)
	writeFile(t, dir, "staging.yaml", `
db:
  host: db.staging
billing:
  minor_unit: Paise
`)
	writeFile(t, dir, "secrets.env", "# local secrets\nDB_SECRET=\"s3cret\"\n")

	cfg, err := LoadConfig("staging", dir)
	if err != nil {
		t.Fatal(err)
	}

	db := cfg["db"].(map[string]interface{})
	if db["host"] != "db.staging" {
		t.Fatalf("host = %v", db["host"])
	}
	if db["port"] != 5432 {
		t.Fatalf("port = %v (%T)", db["port"], db["port"])
	}
	if db["password"] != "s3cret" {
		t.Fatalf("password = %v", db["password"])
	}
	billing := cfg["billing"].(map[string]interface{})
	if billing["minor_unit"] != "Paise" || billing["reconcile_timeout"] != "5s" {
		t.Fatalf("billing = %v", billing)
	}
}

func TestLoadConfigMissingEnvFileFallsBackToBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \":8080\"\n")

	cfg, err := LoadConfig("production", dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg["server"].(map[string]interface{})["port"] != ":8080" {
		t.Fatalf("cfg = %v", cfg)
	}
}

func TestLoadConfigRequiresBase(t *testing.T) {
	if _, err := LoadConfig("local", t.TempDir()); err == nil {
		t.Fatal("expected error without base.yaml")
	}
}

func TestSubstituteFallsBackToSystemEnv(t *testing.T) {
	t.Setenv("BILLING_TEST_HOST", "from-env")
	got := substituteString("${BILLING_TEST_HOST}:${UNSET_BILLING_VAR}", map[string]string{})
	if got != "from-env:${UNSET_BILLING_VAR}" {
		t.Fatalf("got %q", got)
	}
}

func TestOverrideDBFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PORT", "not-a-number")
	cfg := DBConfig{Host: "localhost", Port: 5432}
	OverrideDBFromEnv(&cfg)
	if cfg.Host != "pg" || cfg.Port != 5432 {
		t.Fatalf("cfg = %+v", cfg)
	}
}
