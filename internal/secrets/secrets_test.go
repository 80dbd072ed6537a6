package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRoundTripGeminiKey(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "secrets.enc"), filepath.Join(dir, "master.key"))
	if err := store.SetGeminiKey("test-key-1234"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.GetGeminiKey()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "test-key-1234" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestKeyNotStoredInPlaintext(t *testing.T) {
	dir := t.TempDir()
	secretsPath := filepath.Join(dir, "secrets.enc")
	store := NewStore(secretsPath, filepath.Join(dir, "master.key"))
	if err := store.SetGeminiKey("super-secret-value"); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, err := os.ReadFile(secretsPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "super-secret-value") {
		t.Fatalf("secret stored in plaintext")
	}
}

func TestClearGeminiKey(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "secrets.enc"), filepath.Join(dir, "master.key"))
	if err := store.SetGeminiKey("abc"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.ClearGeminiKey(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err := store.GetGeminiKey()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty key after clear, got %q", got)
	}
}
