// Package server exposes the workflow, stores and extraction proxy over a
// JSON HTTP API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/zombor/carlog/internal/fleet"
	"github.com/zombor/carlog/internal/ledger"
	"github.com/zombor/carlog/internal/proxy"
	"github.com/zombor/carlog/internal/settings"
	"github.com/zombor/carlog/internal/workflow"
)

// Server handles HTTP requests for the receipt workflow.
type Server struct {
	session  *workflow.Session
	fleet    *fleet.Store
	ledger   *ledger.Ledger
	settings *settings.Store
	extract  *proxy.Handler
	mux      *http.ServeMux
}

// NewServer creates a new Server with a default mux.
func NewServer(session *workflow.Session, fleetStore *fleet.Store, ldg *ledger.Ledger, settingsStore *settings.Store, extract *proxy.Handler) *Server {
	s := &Server{
		session:  session,
		fleet:    fleetStore,
		ledger:   ldg,
		settings: settingsStore,
		extract:  extract,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux.
// Routes are registered from most specific to least specific.
func (s *Server) registerRoutes() {
	// Extraction proxy
	s.mux.Handle("/api/extract", s.extract)

	// Upload/review session
	s.mux.HandleFunc("GET /api/session", s.handleGetSession)
	s.mux.HandleFunc("POST /api/session/image", s.handleSelectImage)
	s.mux.HandleFunc("POST /api/session/vehicle", s.handleSelectVehicle)
	s.mux.HandleFunc("POST /api/session/analyze", s.handleAnalyze)
	s.mux.HandleFunc("PUT /api/session/fields", s.handleUpdateFields)
	s.mux.HandleFunc("POST /api/session/confirm", s.handleConfirm)
	s.mux.HandleFunc("POST /api/session/discard", s.handleDiscard)

	// Fleet
	s.mux.HandleFunc("GET /api/vehicles/export", s.handleExportFleet)
	s.mux.HandleFunc("POST /api/vehicles/import", s.handleImportFleet)
	s.mux.HandleFunc("DELETE /api/vehicles/{id}", s.handleDeleteVehicle)
	s.mux.HandleFunc("GET /api/vehicles", s.handleListVehicles)
	s.mux.HandleFunc("POST /api/vehicles", s.handleAddVehicle)

	// Ledger
	s.mux.HandleFunc("GET /api/receipts/export.csv", s.handleExportCSV)
	s.mux.HandleFunc("GET /api/receipts", s.handleListReceipts)

	// Settings
	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings", s.handleSaveSettings)
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}
