package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VKNithyanand/garuda-finance/internal/middleware"
	"github.com/VKNithyanand/garuda-finance/internal/pipeline"
	"github.com/VKNithyanand/garuda-finance/internal/storage"
	"github.com/VKNithyanand/garuda-finance/internal/streaming"
)

// maxUploadBytes caps the multipart form size for batch imports
const maxUploadBytes = 100 << 20

// heartbeatInterval keeps SSE connections alive through proxies
const heartbeatInterval = 15 * time.Second

// ImportSession tracks one batch import run
type ImportSession struct {
	ID          string                `json:"id"`
	UserID      string                `json:"userId"`
	Status      string                `json:"status"`
	FileCount   int                   `json:"fileCount"`
	Stats       *pipeline.ImportStats `json:"stats,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	CompletedAt *time.Time            `json:"completedAt,omitempty"`
	Error       string                `json:"error,omitempty"`
}

func sessionKey(sessionID string) string {
	return "session-" + sessionID
}

// ImportHandlers handles batch import requests
type ImportHandlers struct {
	store    storage.Store
	hub      *streaming.StreamHub
	pipeline *pipeline.Pipeline

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewImportHandlers creates the import handlers
func NewImportHandlers(store storage.Store, hub *streaming.StreamHub, pipe *pipeline.Pipeline) *ImportHandlers {
	return &ImportHandlers{
		store:    store,
		hub:      hub,
		pipeline: pipe,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// StartImport handles POST /api/import/start. Uploaded files are
// written to a temp directory and processed in the background; the
// response carries the session ID for streaming progress.
func (h *ImportHandlers) StartImport(w http.ResponseWriter, r *http.Request) {
	authInfo, ok := middleware.GetAuth(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		http.Error(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	sessionID := uuid.New().String()

	uploadDir, err := os.MkdirTemp("", "garuda-import-"+sessionID)
	if err != nil {
		log.Printf("ERROR: Failed to create upload dir: %v", err)
		http.Error(w, "Failed to stage upload", http.StatusInternalServerError)
		return
	}

	files := make([]pipeline.File, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		path, err := saveUpload(fh, filepath.Join(uploadDir, filepath.Base(fh.Filename)))
		if err != nil {
			log.Printf("ERROR: Failed to save uploaded file %s: %v", fh.Filename, err)
			continue
		}
		files = append(files, pipeline.File{Path: path})
	}

	if len(files) == 0 {
		os.RemoveAll(uploadDir)
		http.Error(w, "No usable files uploaded", http.StatusBadRequest)
		return
	}

	session := &ImportSession{
		ID:        sessionID,
		UserID:    authInfo.UserID,
		Status:    "processing",
		FileCount: len(files),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.saveSession(r.Context(), session); err != nil {
		os.RemoveAll(uploadDir)
		log.Printf("ERROR: Failed to create import session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	importCtx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancels[sessionID] = cancel
	h.mu.Unlock()

	go h.runImport(importCtx, session, files, uploadDir)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, `{"sessionId":%q}`, sessionID)
}

// runImport processes staged files in the background and broadcasts
// the terminal event for the session
func (h *ImportHandlers) runImport(ctx context.Context, session *ImportSession, files []pipeline.File, uploadDir string) {
	defer os.RemoveAll(uploadDir)
	defer h.releaseCancel(session.ID)

	stats, err := h.pipeline.ProcessFiles(ctx, session.ID, files, datasetKey(session.UserID))
	session.Stats = stats

	now := time.Now().UTC()
	session.CompletedAt = &now

	// The import context may already be cancelled; terminal updates use
	// their own context so the final state still reaches the store.
	saveCtx := context.Background()

	if errors.Is(err, context.Canceled) || h.sessionCancelled(saveCtx, session.ID) {
		session.Status = "cancelled"
		if err := h.saveSession(saveCtx, session); err != nil {
			log.Printf("ERROR: Failed to update session %s: %v", session.ID, err)
		}
		h.hub.Broadcast(session.ID, streaming.NewErrorEvent(streaming.ErrorEvent{
			Message: "Import cancelled",
		}))
		return
	}

	if err != nil {
		log.Printf("ERROR: Import session %s failed: %v", session.ID, err)
		session.Status = "error"
		session.Error = err.Error()
		if err := h.saveSession(saveCtx, session); err != nil {
			log.Printf("ERROR: Failed to update session %s: %v", session.ID, err)
		}
		h.hub.Broadcast(session.ID, streaming.NewErrorEvent(streaming.ErrorEvent{
			Message: session.Error,
		}))
		return
	}

	session.Status = "completed"
	if err := h.saveSession(saveCtx, session); err != nil {
		log.Printf("ERROR: Failed to update session %s: %v", session.ID, err)
	}

	h.hub.Broadcast(session.ID, streaming.NewCompleteEvent(map[string]interface{}{
		"status": "completed",
		"stats":  stats,
	}))
}

// releaseCancel cancels and forgets the session's import context
func (h *ImportHandlers) releaseCancel(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cancel, ok := h.cancels[sessionID]; ok {
		cancel()
		delete(h.cancels, sessionID)
	}
}

// sessionCancelled reports whether a concurrent cancel already marked
// the stored session; that status survives the terminal update
func (h *ImportHandlers) sessionCancelled(ctx context.Context, sessionID string) bool {
	stored, err := h.loadSession(ctx, sessionID)
	return err == nil && stored.Status == "cancelled"
}

// GetImportSession handles GET /api/import/{id}
func (h *ImportHandlers) GetImportSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(session); err != nil {
		log.Printf("ERROR: Failed to encode session %s: %v", session.ID, err)
	}
}

// CancelImport handles POST /api/import/{id}/cancel. The cancelled
// status is stored before the pipeline context is cancelled so the
// background worker always observes the cancellation.
func (h *ImportHandlers) CancelImport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	if session.Status != "processing" {
		http.Error(w, "Session already finished", http.StatusConflict)
		return
	}

	session.Status = "cancelled"
	if err := h.saveSession(r.Context(), session); err != nil {
		http.Error(w, "Failed to cancel session", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	if cancel, ok := h.cancels[session.ID]; ok {
		cancel()
	}
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"cancelled"}`))
}

// StreamImport handles GET /api/import/{id}/stream as Server-Sent
// Events until the session finishes or the client disconnects
func (h *ImportHandlers) StreamImport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := h.hub.Register(r.Context(), session.ID)
	defer h.hub.Unregister(session.ID, client)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := writeSSE(w, streaming.NewHeartbeatEvent()); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-client.Events:
			if !open {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
			if event.Type == streaming.EventTypeComplete || event.Type == streaming.EventTypeError {
				return
			}
		}
	}
}

func writeSSE(w io.Writer, event streaming.SSEEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// ownedSession loads the session from the path ID and enforces that
// the authenticated user owns it
func (h *ImportHandlers) ownedSession(w http.ResponseWriter, r *http.Request) (*ImportSession, bool) {
	authInfo, ok := middleware.GetAuth(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	sessionID := r.PathValue("id")
	session, err := h.loadSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}

	if session.UserID != authInfo.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return session, true
}

func (h *ImportHandlers) loadSession(ctx context.Context, sessionID string) (*ImportSession, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}
	data, err := h.store.Get(ctx, sessionKey(sessionID))
	if err != nil {
		return nil, err
	}
	var session ImportSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (h *ImportHandlers) saveSession(ctx context.Context, session *ImportSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	return h.store.Set(ctx, sessionKey(session.ID), data)
}

// saveUpload copies one multipart file to disk
func saveUpload(fh *multipart.FileHeader, dst string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", err
	}
	return dst, nil
}
