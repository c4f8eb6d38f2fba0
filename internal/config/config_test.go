package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"SERVER_HOST", "CHAT_PORT", "UPLOAD_PORT", "DOWNLOAD_PORT", "OUTBOX_SIZE", "LOG_LEVEL", "STORAGE_DIR", "DOWNLOAD_DIR", "MAX_FRAMES", "CONTINUATION_WAIT_MS"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ChatPort != 9999 || cfg.UploadPort != 8080 || cfg.DownloadPort != 9000 {
		t.Fatalf("unexpected ports %+v", cfg)
	}
	if cfg.OutboxSize != DefaultOutboxSize || cfg.LogLevel != zerolog.InfoLevel {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MaxFrames != 64 || cfg.ContinuationWait != 200*time.Millisecond {
		t.Fatalf("unexpected reassembly settings %d %v", cfg.MaxFrames, cfg.ContinuationWait)
	}
	if cfg.StorageDir != os.TempDir() {
		t.Fatalf("StorageDir = %q", cfg.StorageDir)
	}
	if got := cfg.ChatAddr(); got != ":9999" {
		t.Fatalf("ChatAddr = %q", got)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	t.Setenv("CHAT_PORT", "chat")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for non numeric port")
	}

	t.Setenv("CHAT_PORT", "70000")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for out of range port")
	}

	t.Setenv("CHAT_PORT", "")
	t.Setenv("MAX_FRAMES", "0")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for zero frame limit")
	}

	t.Setenv("MAX_FRAMES", "")
	t.Setenv("CONTINUATION_WAIT_MS", "50")
	if cfg, err := FromEnv(); err != nil || cfg.ContinuationWait != 50*time.Millisecond {
		t.Fatalf("ContinuationWait = %v, %v", cfg.ContinuationWait, err)
	}

	t.Setenv("LOG_LEVEL", "loud")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for bad log level")
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("UPLOAD_PORT", "")
	os.Unsetenv("UPLOAD_PORT")
	t.Setenv("SERVER_HOST", "127.0.0.1")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("UPLOAD_PORT=18080\nSERVER_HOST=10.0.0.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UploadPort != 18080 {
		t.Fatalf("UploadPort = %d", cfg.UploadPort)
	}
	if cfg.Host != "127.0.0.1" {
		t.Fatalf("existing environment should win, Host = %q", cfg.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file should not fail: %v", err)
	}
}
