// Package workflow drives the upload/review session: image selection,
// vehicle selection, extraction, review and confirm-or-discard.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zombor/carlog/internal/extraction"
	"github.com/zombor/carlog/internal/fleet"
	"github.com/zombor/carlog/internal/ledger"
	"github.com/zombor/carlog/internal/settings"
	"github.com/zombor/carlog/internal/webhook"
)

// State is the session's position in the upload/review flow.
type State string

const (
	StateIdle           State = "idle"
	StateImageSelected  State = "image_selected"
	StateReadyToAnalyze State = "ready_to_analyze"
	StateAnalyzing      State = "analyzing"
	StateReviewing      State = "reviewing"
)

// User-facing messages surfaced by the session.
const (
	MsgSelectBoth    = "Please select an image and a car."
	MsgVehicleGone   = "The selected car no longer exists. Please pick another one."
	MsgWebhookFailed = "Receipt saved locally, but delivery to the spreadsheet failed."
	MsgNothingToSave = "There is no analyzed receipt to save."
)

// ErrBusy is returned when an analyze or save is already in flight; the
// caller's attempt is ignored.
var ErrBusy = errors.New("an operation is already in flight")

// InputError reports a precondition the user has to fix; no I/O was
// attempted.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// defaultIDGenerator generates receipt IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// Session is the state machine for one upload/review flow. At most one
// extraction and one save are in flight at a time; stale extraction results
// are dropped when the session has moved on before they arrive.
type Session struct {
	mu sync.Mutex

	image      []byte
	mimeType   string
	vehicleID  string
	fields     *extraction.Fields
	errMsg     string
	analyzing  bool
	saving     bool
	generation uint64

	fleet       *fleet.Store
	ledger      *ledger.Ledger
	settings    *settings.Store
	picker      extraction.Picker
	poster      webhook.Poster
	idGenerator fleet.IDGenerator
}

// NewSession creates a Session with a default ID generator.
func NewSession(fleetStore *fleet.Store, ldg *ledger.Ledger, settingsStore *settings.Store, picker extraction.Picker, poster webhook.Poster) *Session {
	return NewSessionWithDeps(fleetStore, ldg, settingsStore, picker, poster, &defaultIDGenerator{})
}

// NewSessionWithDeps creates a Session with custom dependencies for testing.
func NewSessionWithDeps(fleetStore *fleet.Store, ldg *ledger.Ledger, settingsStore *settings.Store, picker extraction.Picker, poster webhook.Poster, idGen fleet.IDGenerator) *Session {
	return &Session{
		fleet:       fleetStore,
		ledger:      ldg,
		settings:    settingsStore,
		picker:      picker,
		poster:      poster,
		idGenerator: idGen,
	}
}

// Snapshot is a read-only view of the session for presentation.
type Snapshot struct {
	State     State              `json:"state"`
	HasImage  bool               `json:"hasImage"`
	VehicleID string             `json:"vehicleId"`
	Fields    *extraction.Fields `json:"fields,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:     s.stateLocked(),
		HasImage:  len(s.image) > 0,
		VehicleID: s.vehicleID,
		Fields:    s.fields,
		Error:     s.errMsg,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.analyzing:
		return StateAnalyzing
	case s.fields != nil:
		return StateReviewing
	case len(s.image) > 0 && s.vehicleID != "":
		return StateReadyToAnalyze
	case len(s.image) > 0:
		return StateImageSelected
	default:
		return StateIdle
	}
}

// SelectImage stores a new image and resets any previous extraction result
// and error. Ignored while an analyze or save is in flight.
func (s *Session) SelectImage(data []byte, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzing || s.saving {
		return ErrBusy
	}
	s.image = data
	s.mimeType = mimeType
	s.fields = nil
	s.errMsg = ""
	s.generation++
	return nil
}

// SelectVehicle stores the vehicle selection.
func (s *Session) SelectVehicle(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzing || s.saving {
		return ErrBusy
	}
	if id != "" {
		if _, ok := s.fleet.Get(id); !ok {
			return &InputError{Message: MsgVehicleGone}
		}
	}
	s.vehicleID = id
	return nil
}

// VehicleDeleted clears the selection when the deleted vehicle was the
// selected one; any other deletion leaves the session untouched.
func (s *Session) VehicleDeleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vehicleID == id {
		s.vehicleID = ""
	}
}

// SelectedVehicleID returns the current selection, empty when none.
func (s *Session) SelectedVehicleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicleID
}

// Analyze runs one extraction attempt. It requires both an image and a
// vehicle, refuses to overlap another attempt, and applies the result only
// if the session has not been reset while the request was in flight. On
// failure the image and vehicle selections survive so the user can retry.
func (s *Session) Analyze(ctx context.Context) error {
	s.mu.Lock()
	if s.analyzing || s.saving {
		s.mu.Unlock()
		return ErrBusy
	}
	if len(s.image) == 0 || s.vehicleID == "" {
		s.errMsg = MsgSelectBoth
		s.mu.Unlock()
		return &InputError{Message: MsgSelectBoth}
	}
	s.analyzing = true
	s.errMsg = ""
	s.fields = nil
	gen := s.generation
	image := s.image
	mimeType := s.mimeType
	personalKey := s.settings.Get().PersonalAPIKey
	s.mu.Unlock()

	extractor := s.picker.Pick(personalKey)
	fields, err := extractor.Analyze(ctx, image, mimeType)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		// The session was discarded or re-imaged while the request was in
		// flight; the result no longer belongs to anything.
		slog.Info("Dropping stale extraction result")
		return nil
	}
	s.analyzing = false
	if err != nil {
		slog.Error("Failed to analyze receipt", "error", err)
		s.errMsg = extraction.UserMessage(err)
		return err
	}
	s.fields = fields
	return nil
}

// UpdateFields replaces the extracted fields during review.
func (s *Session) UpdateFields(fields extraction.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fields == nil || s.analyzing || s.saving {
		return &InputError{Message: MsgNothingToSave}
	}
	s.fields = &fields
	return nil
}

// Confirm builds a receipt from the reviewed fields, delivers it to the
// configured webhook best-effort, appends it to the ledger and resets the
// session. The returned warning is non-empty when webhook delivery failed;
// the local save completes regardless.
func (s *Session) Confirm(ctx context.Context) (ledger.Receipt, string, error) {
	s.mu.Lock()
	if s.analyzing || s.saving {
		s.mu.Unlock()
		return ledger.Receipt{}, "", ErrBusy
	}
	if s.fields == nil {
		s.mu.Unlock()
		return ledger.Receipt{}, "", &InputError{Message: MsgNothingToSave}
	}
	vehicle, ok := s.fleet.Get(s.vehicleID)
	if !ok {
		s.mu.Unlock()
		return ledger.Receipt{}, "", &InputError{Message: MsgVehicleGone}
	}
	s.saving = true
	receipt := ledger.Receipt{
		ID:      s.idGenerator.Generate(),
		Vehicle: vehicle,
		Fields:  *s.fields,
	}
	webhookURL := s.settings.Get().WebhookURL
	s.mu.Unlock()

	var warning string
	if webhookURL != "" {
		payload := webhook.Payload{
			CarName:     receipt.Vehicle.Name,
			CarPlate:    receipt.Vehicle.Plate,
			Date:        receipt.Date,
			Vendor:      receipt.Vendor,
			Description: receipt.Description,
			Total:       receipt.Total,
		}
		if err := s.poster.Post(ctx, webhookURL, payload); err != nil {
			slog.Warn("Webhook delivery failed", "error", err)
			warning = MsgWebhookFailed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Append(receipt)
	s.saving = false
	s.resetLocked()
	return receipt, warning, nil
}

// Discard resets the entire session. Idempotent from any state.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.image = nil
	s.mimeType = ""
	s.vehicleID = ""
	s.fields = nil
	s.errMsg = ""
	s.analyzing = false
	s.generation++
}
