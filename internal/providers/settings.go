package providers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ProviderSettings is the persisted administrative state of one provider.
type ProviderSettings struct {
	Properties     map[string]string `json:"properties,omitempty"`
	Weight         *int              `json:"weight,omitempty"`
	SelectedModels []string          `json:"selected_models,omitempty"`
	CustomModels   []string          `json:"custom_models,omitempty"`
}

type settingsFile struct {
	Version   int                         `json:"version"`
	UpdatedAt time.Time                   `json:"updated_at"`
	Providers map[string]ProviderSettings `json:"providers"`
}

// SettingsStore persists provider settings in a single JSON file.
// Writes are atomic (temp file + rename) so a crash never leaves a
// half-written file behind.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore creates a store backed by the given file path. An empty
// path disables persistence; loads return empty settings and saves are
// dropped.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

func (s *SettingsStore) load() (settingsFile, error) {
	out := settingsFile{Version: 1, Providers: map[string]ProviderSettings{}}
	if s.path == "" {
		return out, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if out.Providers == nil {
		out.Providers = map[string]ProviderSettings{}
	}
	return out, nil
}

// Load returns the persisted settings of one provider.
func (s *SettingsStore) Load(providerID string) (ProviderSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.load()
	if err != nil {
		return ProviderSettings{}, err
	}
	return file.Providers[providerID], nil
}

// Save replaces the persisted settings of one provider.
func (s *SettingsStore) Save(providerID string, settings ProviderSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil
	}

	file, err := s.load()
	if err != nil {
		return err
	}
	file.Version = 1
	file.UpdatedAt = time.Now().UTC()
	file.Providers[providerID] = settings

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename settings file: %w", err)
	}
	return nil
}
