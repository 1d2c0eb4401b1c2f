// Package proxy implements the extraction proxy endpoint: a stateless
// handler holding the server-side Gemini credential so clients never need to
// embed one.
package proxy

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zombor/carlog/internal/extraction"
)

// ExtractorFactory builds an extractor for a resolved credential. Injectable
// for testing; production use is NewDirectFactory.
type ExtractorFactory func(apiKey string) (extraction.Extractor, error)

// NewDirectFactory returns a factory producing Direct extractors for the
// given model.
func NewDirectFactory(model string) ExtractorFactory {
	return func(apiKey string) (extraction.Extractor, error) {
		return extraction.NewDirect(apiKey, model)
	}
}

// Handler serves POST /api/extract.
type Handler struct {
	serverKeys []string
	factory    ExtractorFactory
}

// NewHandler creates a Handler. serverKeys are raw credential strings tried
// in order; each is sanitized before use.
func NewHandler(serverKeys []string, factory ExtractorFactory) *Handler {
	return &Handler{serverKeys: serverKeys, factory: factory}
}

type extractRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
	APIKey   string `json:"apiKey"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "No image received.")
		return
	}

	apiKey := h.resolveKey(req.APIKey)
	if apiKey == "" {
		slog.Error("No API key found in request or server configuration")
		writeError(w, http.StatusInternalServerError, extraction.MsgMissingCredential)
		return
	}
	// Safe to log: length and tail only, never the key itself.
	slog.Info("API key loaded", "length", len(apiKey), "ends_with", tail(apiKey, 4))

	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Image is not valid base64.")
		return
	}

	extractor, err := h.factory(apiKey)
	if err != nil {
		slog.Error("Failed to build extractor", "error", err)
		writeError(w, http.StatusInternalServerError, extraction.UserMessage(err))
		return
	}

	fields, err := extractor.Analyze(r.Context(), imageData, req.MimeType)
	if err != nil {
		logCause(err)
		writeError(w, http.StatusInternalServerError, extraction.UserMessage(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(fields); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// resolveKey applies the credential priority order: request-supplied key
// first, then the first configured server key that survives sanitization.
func (h *Handler) resolveKey(requestKey string) string {
	if k := extraction.SanitizeKey(requestKey); k != "" {
		return k
	}
	for _, raw := range h.serverKeys {
		if k := extraction.SanitizeKey(raw); k != "" {
			return k
		}
	}
	return ""
}

func logCause(err error) {
	var xerr *extraction.Error
	if errors.As(err, &xerr) && xerr.Err != nil {
		slog.Error("Extraction failed", "cause", xerr.Err, "message", xerr.Message)
		return
	}
	slog.Error("Extraction failed", "error", err)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
