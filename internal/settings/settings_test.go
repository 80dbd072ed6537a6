package settings

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.ModelID != DefaultModelID {
		t.Fatalf("expected default model, got %q", settings.ModelID)
	}
	if settings.MaxContextMessages != DefaultMaxContextMessages {
		t.Fatalf("expected default context window, got %d", settings.MaxContextMessages)
	}
}

func TestUpdatePersistsAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewStore(path)
	if _, err := store.Update(func(s *Settings) {
		s.ModelID = "gemini-2.5-pro"
		s.MaxContextMessages = 0
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ModelID != "gemini-2.5-pro" {
		t.Fatalf("model not persisted, got %q", reloaded.ModelID)
	}
	if reloaded.MaxContextMessages != DefaultMaxContextMessages {
		t.Fatalf("expected backfilled context window, got %d", reloaded.MaxContextMessages)
	}
}
