// Package settings holds the user-configurable options: the external
// spreadsheet webhook URL and an optional personal Gemini API key.
package settings

import (
	"log/slog"
	"sync"
)

// Settings is the persisted configuration. Both fields are optional.
type Settings struct {
	WebhookURL     string `json:"webhookUrl"`
	PersonalAPIKey string `json:"personalApiKey"`
}

// Repository persists the settings blob. Load falls back to zero-value
// settings when nothing usable is stored.
type Repository interface {
	LoadSettings() (Settings, error)
	SaveSettings(Settings) error
}

// Store keeps the current settings in memory and writes mutations through.
// Safe for use from concurrent request handlers.
type Store struct {
	mu      sync.Mutex
	repo    Repository
	current Settings
}

// NewStore creates a Store loaded from the repository.
func NewStore(repo Repository) *Store {
	current, err := repo.LoadSettings()
	if err != nil {
		slog.Error("Failed to load settings, using defaults", "error", err)
		current = Settings{}
	}
	return &Store{repo: repo, current: current}
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Save replaces the settings. Only called on an explicit save action;
// persistence failure is logged, not surfaced.
func (s *Store) Save(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = settings
	if err := s.repo.SaveSettings(settings); err != nil {
		slog.Error("Failed to persist settings", "error", err)
	}
}
