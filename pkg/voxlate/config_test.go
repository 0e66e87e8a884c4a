package voxlate

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxlate.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "credential: sk-test\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Endpoint != "wss://api.openai.com/v1/realtime" {
		t.Fatalf("unexpected endpoint default: %q", cfg.Endpoint)
	}
	if cfg.Model != "gpt-realtime" {
		t.Fatalf("unexpected model default: %q", cfg.Model)
	}
	if cfg.ChunkDuration() != 100*time.Millisecond {
		t.Fatalf("unexpected chunk duration: %v", cfg.ChunkDuration())
	}
	if cfg.IdleTimeout() != 30*time.Second {
		t.Fatalf("unexpected idle timeout: %v", cfg.IdleTimeout())
	}
	if cfg.MaxReorderWindow != 16 {
		t.Fatalf("unexpected reorder window: %d", cfg.MaxReorderWindow)
	}
	if cfg.MaxRetries != 2 || cfg.RetryBackoff() != 200*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %d %v", cfg.MaxRetries, cfg.RetryBackoff())
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected log defaults: %s %s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadConfigExpandsEnvCredential(t *testing.T) {
	t.Setenv("VOXLATE_TEST_KEY", "sk-from-env")
	path := writeConfig(t, "credential: ${VOXLATE_TEST_KEY}\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Credential != "sk-from-env" {
		t.Fatalf("credential not expanded: %q", cfg.Credential)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
credential: sk-test
endpoint: wss://proxy.internal/realtime
chunk_duration_ms: 40
fragment_timeout_ms: 2500
max_reorder_window: 64
grow_on_overflow: true
log_format: text
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Endpoint != "wss://proxy.internal/realtime" {
		t.Fatalf("endpoint override lost: %q", cfg.Endpoint)
	}
	if cfg.ChunkDuration() != 40*time.Millisecond {
		t.Fatalf("chunk duration override lost: %v", cfg.ChunkDuration())
	}
	if cfg.FragmentTimeout() != 2500*time.Millisecond {
		t.Fatalf("fragment timeout override lost: %v", cfg.FragmentTimeout())
	}
	if !cfg.GrowOnOverflow || cfg.MaxReorderWindow != 64 {
		t.Fatalf("reorder overrides lost")
	}
}

func TestLoadConfigRejectsMissingCredential(t *testing.T) {
	path := writeConfig(t, "endpoint: wss://example.test\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadConfigProfileDefaults(t *testing.T) {
	path := writeConfig(t, `
credential: sk-test
profile:
  voice: nova
  mode: enhanced
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defaults, err := cfg.ProfileDefaults()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if defaults.Voice != "nova" || defaults.Mode != "enhanced" {
		t.Fatalf("unexpected defaults: %+v", defaults)
	}
}

func TestLoadConfigRejectsUnknownVoice(t *testing.T) {
	path := writeConfig(t, "credential: sk-test\nprofile:\n  voice: bogus\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error for unknown voice")
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	path := writeConfig(t, "credential: sk-test\nchunk_duration_ms: 0\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error for zero chunk duration")
	}
}
