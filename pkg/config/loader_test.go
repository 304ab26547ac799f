package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadMergesEnvironmentOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
storage:
  driver: sqlite
  sqlite_path: base.db
server:
  port: ":8080"
outbox:
  interval: 2s
log:
  level: info
`)
	writeFile(t, dir, "staging.yaml", `
storage:
  sqlite_path: staging.db
log:
  level: debug
`)

	cfg, err := Load("staging", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Fatalf("driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.SQLitePath != "staging.db" {
		t.Fatalf("sqlite_path = %q, want staging.db", cfg.Storage.SQLitePath)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log.level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Outbox.Interval != 2*time.Second {
		t.Fatalf("outbox.interval = %v, want 2s", cfg.Outbox.Interval)
	}
	if cfg.Outbox.BatchSize != 100 || cfg.Redis.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Outbox, cfg.Redis)
	}
}

func TestLoadSubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
storage:
  driver: postgres
db:
  host: db.internal
  name: fairshare
  user: app
  password: ${DB_SECRET}
`)
	writeFile(t, dir, "secrets.env", "# comment\nDB_SECRET=\"s3cret\"\n")

	cfg, err := Load("local", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Password != "s3cret" {
		t.Fatalf("password = %q, want s3cret", cfg.DB.Password)
	}
	if !strings.Contains(cfg.DB.DSN(), "app:s3cret@db.internal:5432/fairshare") {
		t.Fatalf("dsn = %q", cfg.DB.DSN())
	}
}

func TestLoadEnvironmentVariablesWin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "storage:\n  driver: sqlite\n")
	t.Setenv("SQLITE_PATH", "/tmp/env.db")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load("local", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.SQLitePath != "/tmp/env.db" {
		t.Fatalf("sqlite_path = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Server.Port != ":9090" {
		t.Fatalf("port = %q, want :9090", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "storage:\n  driver: mongo\n")
	if _, err := Load("local", dir); err == nil {
		t.Fatal("expected unknown driver error")
	}

	dir = t.TempDir()
	writeFile(t, dir, "base.yaml", "storage:\n  driver: sqlite\nmq:\n  enabled: true\n")
	if _, err := Load("local", dir); err == nil {
		t.Fatal("expected missing mq.url error")
	}
}

func TestLoadRequiresBase(t *testing.T) {
	if _, err := Load("local", t.TempDir()); err == nil {
		t.Fatal("expected missing base.yaml error")
	}
}

func TestMergeMapsIsRecursive(t *testing.T) {
	t.Parallel()

	dst := map[string]interface{}{"a": map[string]interface{}{"x": 1, "y": 2}, "b": 1}
	src := map[string]interface{}{"a": map[string]interface{}{"y": 3}}
	got := mergeMaps(dst, src)
	a := got["a"].(map[string]interface{})
	if a["x"] != 1 || a["y"] != 3 || got["b"] != 1 {
		t.Fatalf("merged = %v", got)
	}
	if dst["a"].(map[string]interface{})["y"] != 2 {
		t.Fatal("mergeMaps mutated dst")
	}
}
