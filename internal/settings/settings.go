package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const schemaVersion = 1

// DefaultModelID is the model used when nothing else is configured.
const DefaultModelID = "gemini-2.0-flash"

// DefaultMaxContextMessages bounds how much chat history goes into a prompt.
const DefaultMaxContextMessages = 20

type Settings struct {
	SchemaVersion      int    `json:"schema_version"`
	ModelID            string `json:"model_id,omitempty"`
	MaxContextMessages int    `json:"max_context_messages,omitempty"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return nil, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	backfillSettings(&settings)
	return &settings, nil
}

func (s *Store) Save(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	backfillSettings(settings)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *Store) Update(fn func(*Settings)) (*Settings, error) {
	settings, err := s.Load()
	if err != nil {
		return nil, err
	}
	fn(settings)
	return settings, s.Save(settings)
}

func defaultSettings() *Settings {
	return &Settings{
		SchemaVersion:      schemaVersion,
		ModelID:            DefaultModelID,
		MaxContextMessages: DefaultMaxContextMessages,
	}
}

func backfillSettings(settings *Settings) {
	if settings.SchemaVersion == 0 {
		settings.SchemaVersion = schemaVersion
	}
	if strings.TrimSpace(settings.ModelID) == "" {
		settings.ModelID = DefaultModelID
	}
	if settings.MaxContextMessages <= 0 {
		settings.MaxContextMessages = DefaultMaxContextMessages
	}
}
