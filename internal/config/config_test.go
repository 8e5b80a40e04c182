package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseURLEnv, "")
	t.Setenv(portEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(notebookPathEnv, "")
	t.Setenv(recognizerBackendEnv, "")

	cfg := Load()

	if cfg.Database.DSN != "" {
		t.Fatalf("expected empty dsn (memory store), got %q", cfg.Database.DSN)
	}
	if cfg.Storage.MaxUploadBytes != 10<<20 {
		t.Fatalf("unexpected upload limit: %d", cfg.Storage.MaxUploadBytes)
	}
	if filepath.Base(cfg.Recognizer.Notebook) != DefaultNotebookName {
		t.Fatalf("unexpected notebook path: %s", cfg.Recognizer.Notebook)
	}
	if cfg.Recognizer.Backend != "notebook" {
		t.Fatalf("unexpected backend: %s", cfg.Recognizer.Backend)
	}
	if cfg.Recognizer.Timeout <= 0 {
		t.Fatalf("recognizer timeout must be positive")
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  addr: ":9090"
storage:
  uploadDir: /var/lib/ocr/uploads
recognizer:
  backend: remote
  timeout: 45s
  remote:
    endpoint: http://ocr.internal/recognize
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseURLEnv, "postgres://u:p@db:5432/ocr")
	t.Setenv(portEnv, "8081")
	t.Setenv(logLevelEnv, "")
	t.Setenv(notebookPathEnv, "/srv/notebooks/custom.ipynb")
	t.Setenv(recognizerBackendEnv, "")

	cfg := Load()

	if cfg.Server.Addr != ":8081" {
		t.Fatalf("PORT override not applied: %s", cfg.Server.Addr)
	}
	if cfg.Database.DSN != "postgres://u:p@db:5432/ocr" {
		t.Fatalf("unexpected dsn: %s", cfg.Database.DSN)
	}
	if cfg.Storage.UploadDir != "/var/lib/ocr/uploads" {
		t.Fatalf("unexpected upload dir: %s", cfg.Storage.UploadDir)
	}
	if cfg.Storage.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("default upload limit lost in merge: %d", cfg.Storage.MaxUploadBytes)
	}
	if cfg.Recognizer.Backend != "remote" || cfg.Recognizer.Remote.Endpoint != "http://ocr.internal/recognize" {
		t.Fatalf("unexpected recognizer: %+v", cfg.Recognizer)
	}
	if cfg.Recognizer.Timeout != 45*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Recognizer.Timeout)
	}
	if cfg.Recognizer.Notebook != "/srv/notebooks/custom.ipynb" {
		t.Fatalf("notebook override not applied: %s", cfg.Recognizer.Notebook)
	}
	if cfg.Recognizer.Interpreter != "python3" {
		t.Fatalf("default interpreter lost in merge: %s", cfg.Recognizer.Interpreter)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.Logging.Level)
	}
}

func TestLoadUnreadableFileFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(databaseURLEnv, "")
	t.Setenv(portEnv, "")
	t.Setenv(logLevelEnv, "")
	t.Setenv(notebookPathEnv, "")
	t.Setenv(recognizerBackendEnv, "")

	cfg := Load()
	if cfg.Server.Addr != ":5000" {
		t.Fatalf("expected default addr, got %s", cfg.Server.Addr)
	}
}
