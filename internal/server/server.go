// Package server wires the HTTP API together.
package server

import (
	"net/http"

	"github.com/VKNithyanand/garuda-finance/internal/classify"
	"github.com/VKNithyanand/garuda-finance/internal/handlers"
	"github.com/VKNithyanand/garuda-finance/internal/middleware"
	"github.com/VKNithyanand/garuda-finance/internal/pipeline"
	"github.com/VKNithyanand/garuda-finance/internal/storage"
	"github.com/VKNithyanand/garuda-finance/internal/streaming"
)

// Server is the analytics API server
type Server struct {
	store storage.Store
	mux   *http.ServeMux
}

// New creates a server on top of the given storage backend. The
// verifier authenticates API requests; the engine classifies expenses
// during batch imports.
func New(store storage.Store, verifier middleware.TokenVerifier, engine *classify.Engine) *Server {
	s := &Server{
		store: store,
		mux:   http.NewServeMux(),
	}
	s.setupRoutes(verifier, engine)
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(verifier middleware.TokenVerifier, engine *classify.Engine) {
	// Health check (no auth required)
	s.mux.HandleFunc("/health", handlers.HealthCheck)

	apiHandler := handlers.NewAPIHandler(s.store)
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	// Import handlers with streaming hub
	hub := streaming.NewStreamHub()
	pipe := pipeline.New(s.store, engine, hub)
	importHandler := handlers.NewImportHandlers(s.store, hub, pipe)

	auth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(h)
	}

	// Dataset and report routes
	s.mux.Handle("GET /api/dataset", auth(apiHandler.GetDataset))
	s.mux.Handle("PUT /api/dataset", auth(apiHandler.PutDataset))
	s.mux.Handle("DELETE /api/dataset", auth(apiHandler.DeleteDataset))
	s.mux.Handle("GET /api/report", auth(apiHandler.GetReport))

	// Batch import routes
	s.mux.Handle("POST /api/import/start", auth(importHandler.StartImport))
	s.mux.Handle("GET /api/import/{id}", auth(importHandler.GetImportSession))
	s.mux.Handle("POST /api/import/{id}/cancel", auth(importHandler.CancelImport))
	s.mux.Handle("GET /api/import/{id}/stream", auth(importHandler.StreamImport))

	// Static files for the dashboard frontend (when deployed together)
	fs := http.FileServer(http.Dir("./dist"))
	s.mux.Handle("/", fs)
}

// Handler returns the HTTP handler with global middleware applied
func (s *Server) Handler() http.Handler {
	return middleware.CORS(s.mux)
}

// Close closes the server resources
func (s *Server) Close() error {
	return s.store.Close()
}
