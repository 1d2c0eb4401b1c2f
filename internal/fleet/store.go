package fleet

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyFleet is returned when an export is requested for an empty fleet.
var ErrEmptyFleet = errors.New("there are no vehicles to export")

// ValidationError describes why an imported fleet was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fleet data: %s", e.Reason)
}

// Repository persists the fleet as a single blob. Load falls back to the
// seed fleet when nothing usable is stored.
type Repository interface {
	LoadFleet() ([]Vehicle, error)
	SaveFleet([]Vehicle) error
}

// IDGenerator generates unique IDs for vehicles
type IDGenerator interface {
	Generate() string
}

// defaultIDGenerator builds time-based IDs with a random suffix so that
// vehicles created in the same millisecond still get distinct IDs.
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("car-%d-%s", time.Now().UnixMilli(), suffix)
}

// Store holds the in-memory fleet and writes every mutation through to the
// repository. Persistence failures are logged, never surfaced: the in-memory
// state is authoritative for the running session. Safe for use from
// concurrent request handlers.
type Store struct {
	mu          sync.Mutex
	repo        Repository
	vehicles    []Vehicle
	idGenerator IDGenerator
}

// NewStore creates a Store loaded from the repository.
func NewStore(repo Repository) *Store {
	return NewStoreWithDeps(repo, &defaultIDGenerator{})
}

// NewStoreWithDeps creates a Store with a custom ID generator for testing.
func NewStoreWithDeps(repo Repository, idGen IDGenerator) *Store {
	vehicles, err := repo.LoadFleet()
	if err != nil {
		slog.Error("Failed to load fleet, using seed vehicles", "error", err)
		vehicles = SeedVehicles()
	}
	return &Store{
		repo:        repo,
		vehicles:    vehicles,
		idGenerator: idGen,
	}
}

// List returns a copy of the current fleet.
func (s *Store) List() []Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Vehicle, len(s.vehicles))
	copy(out, s.vehicles)
	return out
}

// Get returns the vehicle with the given ID, or false if it is not present.
func (s *Store) Get(id string) (Vehicle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// Add appends a new vehicle with a generated ID. Callers are expected to
// have trimmed and checked name and plate already.
func (s *Store) Add(name, plate string) Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := Vehicle{
		ID:    s.idGenerator.Generate(),
		Name:  name,
		Plate: plate,
	}
	s.vehicles = append(s.vehicles, v)
	s.persist()
	return v
}

// Delete removes the vehicle with the given ID. Deleting an absent ID is a
// no-op. It reports whether a vehicle was removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.vehicles {
		if v.ID == id {
			s.vehicles = append(s.vehicles[:i], s.vehicles[i+1:]...)
			s.persist()
			return true
		}
	}
	return false
}

// ReplaceAll swaps the entire fleet for the given vehicles after validating
// them. The store is left untouched when validation fails.
func (s *Store) ReplaceAll(vehicles []Vehicle) error {
	if err := Validate(vehicles); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = vehicles
	s.persist()
	return nil
}

// Validate checks that every element carries an id, name and plate.
func Validate(vehicles []Vehicle) error {
	if vehicles == nil {
		return &ValidationError{Reason: "expected a list of vehicles"}
	}
	for i, v := range vehicles {
		if v.ID == "" || v.Name == "" || v.Plate == "" {
			return &ValidationError{Reason: fmt.Sprintf("vehicle %d is missing id, name or plate", i)}
		}
	}
	return nil
}

// ExportJSON renders the fleet as pretty-printed JSON for transfer between
// devices. An empty fleet is refused.
func (s *Store) ExportJSON() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.vehicles) == 0 {
		return "", ErrEmptyFleet
	}
	data, err := json.MarshalIndent(s.vehicles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling fleet: %w", err)
	}
	return string(data), nil
}

// ImportJSON parses previously exported text and replaces the fleet with it.
func (s *Store) ImportJSON(text string) error {
	var vehicles []Vehicle
	if err := json.Unmarshal([]byte(text), &vehicles); err != nil {
		return &ValidationError{Reason: "not valid JSON, paste the exact exported text"}
	}
	return s.ReplaceAll(vehicles)
}

// persist is called with mu held.
func (s *Store) persist() {
	if err := s.repo.SaveFleet(s.vehicles); err != nil {
		slog.Error("Failed to persist fleet", "error", err)
	}
}
