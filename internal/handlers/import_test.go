package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/VKNithyanand/garuda-finance/internal/classify"
	"github.com/VKNithyanand/garuda-finance/internal/domain"
	"github.com/VKNithyanand/garuda-finance/internal/middleware"
	"github.com/VKNithyanand/garuda-finance/internal/pipeline"
	"github.com/VKNithyanand/garuda-finance/internal/storage"
	"github.com/VKNithyanand/garuda-finance/internal/streaming"
)

const importCSV = `date,amount,description,category,vendor
2024-03-05,89.00,Adobe subscription,Software,Adobe
2024-03-09,450.00,Flight to client site,Travel,Delta
`

func newImportHandlers(t *testing.T) (*ImportHandlers, storage.Store, *streaming.StreamHub) {
	t.Helper()

	store := newTestStore(t)
	hub := streaming.NewStreamHub()

	engine, err := classify.LoadEmbedded(rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Failed to load classifier: %v", err)
	}

	pipe := pipeline.New(store, engine, hub)
	return NewImportHandlers(store, hub, pipe), store, hub
}

// multipartUpload builds a multipart body with one form file per entry
func multipartUpload(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// waitForSession polls until the session leaves the processing state
func waitForSession(t *testing.T, h *ImportHandlers, sessionID string) *ImportSession {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		session, err := h.loadSession(context.Background(), sessionID)
		if err == nil && session.Status != "processing" {
			return session
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Session %s did not finish in time", sessionID)
	return nil
}

func TestStartImport_Unauthorized(t *testing.T) {
	h, _, _ := newImportHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import/start", nil)
	w := httptest.NewRecorder()
	h.StartImport(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestStartImport_NoFiles(t *testing.T) {
	h, _, _ := newImportHandlers(t)

	body, contentType := multipartUpload(t, nil)
	req := requestWithAuth(http.MethodPost, "/api/import/start", "user-123", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	h.StartImport(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestStartImport_ProcessesFiles(t *testing.T) {
	h, store, _ := newImportHandlers(t)

	body, contentType := multipartUpload(t, map[string]string{"march.csv": importCSV})
	req := requestWithAuth(http.MethodPost, "/api/import/start", "user-123", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	h.StartImport(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("Expected a session ID")
	}

	session := waitForSession(t, h, resp.SessionID)
	if session.Status != "completed" {
		t.Fatalf("Expected completed session, got %s (%s)", session.Status, session.Error)
	}
	if session.Stats == nil || session.Stats.ExpensesAdded != 2 {
		t.Errorf("Unexpected session stats: %+v", session.Stats)
	}

	// The imported expenses land in the user's dataset
	data, err := store.Get(context.Background(), datasetKey("user-123"))
	if err != nil {
		t.Fatalf("Failed to load dataset: %v", err)
	}
	var dataset domain.Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to decode dataset: %v", err)
	}
	if len(dataset.GetExpenses()) != 2 {
		t.Errorf("Expected 2 imported expenses, got %d", len(dataset.GetExpenses()))
	}
}

func TestGetImportSession_Ownership(t *testing.T) {
	h, _, _ := newImportHandlers(t)

	session := &ImportSession{
		ID:        "session-abc",
		UserID:    "owner-1",
		Status:    "completed",
		CreatedAt: time.Now().UTC(),
	}
	if err := h.saveSession(context.Background(), session); err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}

	req := requestWithAuth(http.MethodGet, "/api/import/session-abc", "intruder", nil)
	req.SetPathValue("id", "session-abc")
	w := httptest.NewRecorder()
	h.GetImportSession(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestCancelImport(t *testing.T) {
	h, _, _ := newImportHandlers(t)

	session := &ImportSession{
		ID:        "session-xyz",
		UserID:    "user-123",
		Status:    "processing",
		CreatedAt: time.Now().UTC(),
	}
	if err := h.saveSession(context.Background(), session); err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}

	req := requestWithAuth(http.MethodPost, "/api/import/session-xyz/cancel", "user-123", nil)
	req.SetPathValue("id", "session-xyz")
	w := httptest.NewRecorder()
	h.CancelImport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	updated, err := h.loadSession(context.Background(), "session-xyz")
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if updated.Status != "cancelled" {
		t.Errorf("Expected cancelled status, got %s", updated.Status)
	}
}

func TestCancelImport_StopsPipelineContext(t *testing.T) {
	h, _, _ := newImportHandlers(t)

	session := &ImportSession{
		ID:        "session-live",
		UserID:    "user-123",
		Status:    "processing",
		CreatedAt: time.Now().UTC(),
	}
	if err := h.saveSession(context.Background(), session); err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}

	// Stand in for the context StartImport hands to the background worker
	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancels[session.ID] = cancel
	h.mu.Unlock()

	req := requestWithAuth(http.MethodPost, "/api/import/session-live/cancel", "user-123", nil)
	req.SetPathValue("id", "session-live")
	w := httptest.NewRecorder()
	h.CancelImport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	select {
	case <-ctx.Done():
	default:
		t.Error("Expected the import context to be cancelled")
	}
}

func TestCancelImport_AlreadyFinished(t *testing.T) {
	h, _, _ := newImportHandlers(t)

	session := &ImportSession{
		ID:        "session-done",
		UserID:    "user-123",
		Status:    "completed",
		CreatedAt: time.Now().UTC(),
	}
	if err := h.saveSession(context.Background(), session); err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}

	req := requestWithAuth(http.MethodPost, "/api/import/session-done/cancel", "user-123", nil)
	req.SetPathValue("id", "session-done")
	w := httptest.NewRecorder()
	h.CancelImport(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}

	stored, err := h.loadSession(context.Background(), "session-done")
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if stored.Status != "completed" {
		t.Errorf("Cancel must not overwrite a finished session, got %s", stored.Status)
	}
}

// stageImportFile writes one upload the way StartImport stages it
func stageImportFile(t *testing.T, content string) (string, []pipeline.File) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "march.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to stage file: %v", err)
	}
	return dir, []pipeline.File{{Path: path}}
}

func TestRunImport_CancelledContextKeepsCancelledStatus(t *testing.T) {
	h, _, _ := newImportHandlers(t)

	session := &ImportSession{
		ID:        "session-interrupted",
		UserID:    "user-123",
		Status:    "cancelled",
		CreatedAt: time.Now().UTC(),
	}
	if err := h.saveSession(context.Background(), session); err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}

	uploadDir, files := stageImportFile(t, importCSV)

	// CancelImport leaves the worker with a dead context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.runImport(ctx, session, files, uploadDir)

	stored, err := h.loadSession(context.Background(), "session-interrupted")
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if stored.Status != "cancelled" {
		t.Errorf("Expected cancelled status to survive, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}
}

func TestRunImport_CancelRecordedBeforeCompletionWins(t *testing.T) {
	h, _, _ := newImportHandlers(t)

	session := &ImportSession{
		ID:        "session-race",
		UserID:    "user-123",
		Status:    "cancelled",
		CreatedAt: time.Now().UTC(),
	}
	if err := h.saveSession(context.Background(), session); err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}

	uploadDir, files := stageImportFile(t, importCSV)

	// The pipeline finishes normally, but the stored cancel must not be
	// clobbered by the completed status
	h.runImport(context.Background(), session, files, uploadDir)

	stored, err := h.loadSession(context.Background(), "session-race")
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}
	if stored.Status != "cancelled" {
		t.Errorf("Expected cancelled status to survive completion, got %s", stored.Status)
	}
}

func TestCancelImport_NotFound(t *testing.T) {
	h, _, _ := newImportHandlers(t)

	req := requestWithAuth(http.MethodPost, "/api/import/ghost/cancel", "user-123", nil)
	req.SetPathValue("id", "ghost")
	w := httptest.NewRecorder()
	h.CancelImport(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestStreamImport_DeliversEvents(t *testing.T) {
	h, _, hub := newImportHandlers(t)

	session := &ImportSession{
		ID:        "stream-session",
		UserID:    "user-123",
		Status:    "processing",
		CreatedAt: time.Now().UTC(),
	}
	if err := h.saveSession(context.Background(), session); err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}

	// Fake auth so the SSE route sees an authenticated user
	mux := http.NewServeMux()
	mux.Handle("GET /api/import/{id}/stream", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.AuthKey, middleware.AuthInfo{UserID: "user-123"})
		ctx = context.WithValue(ctx, middleware.UserIDKey, "user-123")
		h.StreamImport(w, r.WithContext(ctx))
	}))

	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/import/stream-session/stream")
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer resp.Body.Close()

	// Wait for the handler to register with the hub before broadcasting
	deadline := time.Now().Add(2 * time.Second)
	for !hub.IsRunning("stream-session") {
		if time.Now().After(deadline) {
			t.Fatal("Stream client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast("stream-session", streaming.NewProgressEvent(streaming.ProgressEvent{
		FileID: "f1", FileName: "march.csv", Processed: 1, Total: 1, Percentage: 100, Status: "completed",
	}))
	hub.Broadcast("stream-session", streaming.NewCompleteEvent(map[string]string{"status": "completed"}))

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
			lines = append(lines, line)
		}
	}

	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, `"type":"progress"`) {
		t.Errorf("Expected a progress event in the stream, got: %s", joined)
	}
	if !strings.Contains(joined, `"type":"complete"`) {
		t.Errorf("Expected a complete event in the stream, got: %s", joined)
	}
}
