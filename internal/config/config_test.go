package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithEnv("", envMap(nil))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
storage:
  driver: postgres
  postgres_dsn: postgres://db/catalog
blob:
  driver: s3
  s3:
    bucket: exports
    path_style: true
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"INGREDIENTCORE_POSTGRES_DSN":       "postgres://override/catalog",
		"INGREDIENTCORE_BLOB_S3_PATH_STYLE": "false",
	}))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN != "postgres://override/catalog" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Blob.S3.Bucket != "exports" || cfg.Blob.S3.PathStyle || cfg.Blob.S3.Region != "us-east-1" {
		t.Fatalf("unexpected blob %+v", cfg.Blob)
	}
	if cfg.Storage.SQLitePath != "ingredientcore.db" {
		t.Fatalf("defaults lost for unset keys: %+v", cfg.Storage)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil)); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("storage: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWithEnv(bad, envMap(nil)); err == nil {
		t.Fatal("expected parse error")
	}
	_, err := LoadWithEnv("", envMap(map[string]string{
		"INGREDIENTCORE_STORAGE_DRIVER": "mongo",
		"INGREDIENTCORE_BLOB_DRIVER":    "s3",
		"INGREDIENTCORE_LOG_LEVEL":      "loud",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"mongo", "bucket", "loud"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("validation error %q missing %q", err, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, Log{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "table", "ingredient_units")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"table":"ingredient_units"`) {
		t.Fatalf("unexpected log output %q", out)
	}
	if _, err := NewLogger(&buf, Log{Format: "xml"}); err == nil {
		t.Fatal("expected format error")
	}
}
