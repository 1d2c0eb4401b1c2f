package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/carlog/internal/extraction"
	"github.com/zombor/carlog/internal/fleet"
	"github.com/zombor/carlog/internal/ledger"
	"github.com/zombor/carlog/internal/settings"
	"github.com/zombor/carlog/internal/workflow"
)

// maxImageSize caps uploads at 50MB to handle high-resolution phone photos.
const maxImageSize = int64(50 << 20)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSessionError maps workflow errors onto HTTP responses. A busy session
// means the request was ignored, not failed.
func writeSessionError(w http.ResponseWriter, err error) {
	var inputErr *workflow.InputError
	switch {
	case errors.Is(err, workflow.ErrBusy):
		writeError(w, http.StatusConflict, "Another operation is in progress.")
	case errors.As(err, &inputErr):
		writeError(w, http.StatusBadRequest, inputErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, extraction.UserMessage(err))
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleSelectImage accepts a multipart receipt upload and stages it in the
// session.
func (s *Server) handleSelectImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "File is too large or the form is malformed. Maximum size is 50MB.")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	if header.Size > maxImageSize {
		writeError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeByExtension(header.Filename)
	}

	if err := s.session.SelectImage(data, contentType); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func contentTypeByExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleSelectVehicle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VehicleID string `json:"vehicleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := s.session.SelectVehicle(req.VehicleID); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Analyze(r.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleUpdateFields(w http.ResponseWriter, r *http.Request) {
	var fields extraction.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := s.session.UpdateFields(fields); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	receipt, warning, err := s.session.Confirm(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	resp := struct {
		Receipt ledger.Receipt `json:"receipt"`
		Warning string         `json:"warning,omitempty"`
	}{Receipt: receipt, Warning: warning}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	s.session.Discard()
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fleet.List())
}

// handleAddVehicle validates the form input here; the store itself does not
// re-validate.
func (s *Server) handleAddVehicle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Plate string `json:"plate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	name := strings.TrimSpace(req.Name)
	plate := strings.TrimSpace(req.Plate)
	if name == "" || plate == "" {
		writeError(w, http.StatusBadRequest, "Name and plate are required.")
		return
	}
	vehicle := s.fleet.Add(name, plate)
	writeJSON(w, http.StatusCreated, vehicle)
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Vehicle ID required.")
		return
	}
	s.fleet.Delete(id)
	s.session.VehicleDeleted(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportFleet(w http.ResponseWriter, r *http.Request) {
	text, err := s.fleet.ExportJSON()
	if err != nil {
		if errors.Is(err, fleet.ErrEmptyFleet) {
			writeError(w, http.StatusBadRequest, "There are no cars to export.")
			return
		}
		slog.Error("Error exporting fleet", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not export the fleet.")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(text))
}

// handleImportFleet replaces the whole fleet. Import is destructive, so the
// request has to carry an explicit confirm flag.
func (s *Server) handleImportFleet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data    string `json:"data"`
		Confirm bool   `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, "This will replace your current car list. Set confirm to proceed.")
		return
	}
	if err := s.fleet.ImportJSON(req.Data); err != nil {
		var verr *fleet.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "Invalid import data. Please make sure you copied the correct export text.")
			return
		}
		slog.Error("Error importing fleet", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not import the fleet.")
		return
	}
	writeJSON(w, http.StatusOK, s.fleet.List())
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.List())
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	text, err := s.ledger.ExportCSV()
	if err != nil {
		if errors.Is(err, ledger.ErrEmptyLedger) {
			writeError(w, http.StatusBadRequest, "There are no receipts to export yet.")
			return
		}
		slog.Error("Error exporting receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not export the receipts.")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.csv"`)
	w.Write([]byte(text))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	s.settings.Save(req)
	writeJSON(w, http.StatusOK, s.settings.Get())
}
