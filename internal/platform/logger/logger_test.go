package logger

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"api_key", "abc", "ticker", "AAPL", "client_secret", "xyz"})
	if len(out) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", out[1])
	}
	if out[3] != "AAPL" {
		t.Fatalf("ticker should pass through, got %v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("client_secret not redacted: %v", out[5])
	}
}

func TestSanitizeKVsHashesAuthors(t *testing.T) {
	out := sanitizeKVs([]interface{}{"author", "someone"})
	s, _ := out[1].(string)
	if !strings.HasPrefix(s, "hash:") {
		t.Fatalf("expected hashed author, got %v", out[1])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"flow", "news", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestNewWithFileSink(t *testing.T) {
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "ingest.log"))
	t.Setenv("LOG_LEVEL", "info")
	log, err := New("prod")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.With("component", "test").Info("hello", "count", 1)
	log.Sync()
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	if _, err := New("development"); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}
