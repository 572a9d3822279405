// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/VKNithyanand/garuda-finance/internal/domain"
	"github.com/VKNithyanand/garuda-finance/internal/middleware"
	"github.com/VKNithyanand/garuda-finance/internal/report"
	"github.com/VKNithyanand/garuda-finance/internal/storage"
	"github.com/VKNithyanand/garuda-finance/internal/validate"
)

// datasetKey returns the storage key for a user's dataset
func datasetKey(userID string) string {
	return "dataset-" + userID
}

// APIHandler serves dataset and report requests
type APIHandler struct {
	store storage.Store
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(store storage.Store) *APIHandler {
	return &APIHandler{store: store}
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// GetDataset handles GET /api/dataset
func (h *APIHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := h.store.Get(r.Context(), datasetKey(userID))
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Dataset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to load dataset for user %s: %v", userID, err)
		http.Error(w, "Failed to fetch dataset", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// PutDataset handles PUT /api/dataset. The body replaces the stored
// dataset wholesale after passing validation.
func (h *APIHandler) PutDataset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var dataset domain.Dataset
	if err := json.NewDecoder(r.Body).Decode(&dataset); err != nil {
		http.Error(w, "Invalid dataset payload", http.StatusBadRequest)
		return
	}

	result := validate.ValidateDataset(&dataset)
	if !result.IsValid() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Printf("ERROR: Failed to encode validation result for user %s: %v", userID, err)
		}
		return
	}

	data, err := json.Marshal(&dataset)
	if err != nil {
		http.Error(w, "Failed to encode dataset", http.StatusInternalServerError)
		return
	}

	if err := h.store.Set(r.Context(), datasetKey(userID), data); err != nil {
		log.Printf("ERROR: Failed to store dataset for user %s: %v", userID, err)
		http.Error(w, "Failed to store dataset", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteDataset handles DELETE /api/dataset
func (h *APIHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	err := h.store.Delete(r.Context(), datasetKey(userID))
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Dataset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to delete dataset for user %s: %v", userID, err)
		http.Error(w, "Failed to delete dataset", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetReport handles GET /api/report. The report is computed on demand
// from the stored dataset.
func (h *APIHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := h.store.Get(r.Context(), datasetKey(userID))
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Dataset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to load dataset for user %s: %v", userID, err)
		http.Error(w, "Failed to fetch dataset", http.StatusInternalServerError)
		return
	}

	var dataset domain.Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		log.Printf("ERROR: Stored dataset for user %s is corrupt: %v", userID, err)
		http.Error(w, "Stored dataset is corrupt", http.StatusInternalServerError)
		return
	}

	rep := report.Build(&dataset)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		log.Printf("ERROR: Failed to encode report for user %s: %v", userID, err)
		return
	}
}
