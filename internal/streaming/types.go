package streaming

import (
	"encoding/json"
	"time"
)

// EventType represents the type of SSE event
type EventType string

const (
	EventTypeSession   EventType = "session"
	EventTypeProgress  EventType = "progress"
	EventTypeFile      EventType = "file"
	EventTypeExpense   EventType = "expense"
	EventTypeComplete  EventType = "complete"
	EventTypeError     EventType = "error"
	EventTypeHeartbeat EventType = "heartbeat"
)

// SSEEvent represents a Server-Sent Event. The payload is kept private
// so callers go through the typed accessors.
type SSEEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	data      interface{}
}

// MarshalJSON emits the payload under the "data" key
func (e SSEEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      EventType   `json:"type"`
		Timestamp time.Time   `json:"timestamp"`
		Data      interface{} `json:"data"`
	}{
		Type:      e.Type,
		Timestamp: e.Timestamp,
		Data:      e.data,
	})
}

// Data returns the untyped event payload
func (e SSEEvent) Data() interface{} {
	return e.data
}

// SessionData returns the payload as a SessionEvent
func (e SSEEvent) SessionData() (SessionEvent, bool) {
	d, ok := e.data.(SessionEvent)
	return d, ok
}

// ProgressData returns the payload as a ProgressEvent
func (e SSEEvent) ProgressData() (ProgressEvent, bool) {
	d, ok := e.data.(ProgressEvent)
	return d, ok
}

// FileData returns the payload as a FileEvent
func (e SSEEvent) FileData() (FileEvent, bool) {
	d, ok := e.data.(FileEvent)
	return d, ok
}

// ExpenseData returns the payload as an ExpenseEvent
func (e SSEEvent) ExpenseData() (ExpenseEvent, bool) {
	d, ok := e.data.(ExpenseEvent)
	return d, ok
}

// ErrorData returns the payload as an ErrorEvent
func (e SSEEvent) ErrorData() (ErrorEvent, bool) {
	d, ok := e.data.(ErrorEvent)
	return d, ok
}

func newEvent(t EventType, data interface{}) SSEEvent {
	return SSEEvent{Type: t, Timestamp: time.Now().UTC(), data: data}
}

// NewSessionEvent creates a session state event
func NewSessionEvent(data SessionEvent) SSEEvent {
	return newEvent(EventTypeSession, data)
}

// NewProgressEvent creates a progress event
func NewProgressEvent(data ProgressEvent) SSEEvent {
	return newEvent(EventTypeProgress, data)
}

// NewFileEvent creates a file lifecycle event
func NewFileEvent(data FileEvent) SSEEvent {
	return newEvent(EventTypeFile, data)
}

// NewExpenseEvent creates an expense record event
func NewExpenseEvent(data ExpenseEvent) SSEEvent {
	return newEvent(EventTypeExpense, data)
}

// NewErrorEvent creates an error event
func NewErrorEvent(data ErrorEvent) SSEEvent {
	return newEvent(EventTypeError, data)
}

// NewCompleteEvent creates a terminal completion event
func NewCompleteEvent(data interface{}) SSEEvent {
	return newEvent(EventTypeComplete, data)
}

// NewHeartbeatEvent creates a keep-alive event
func NewHeartbeatEvent() SSEEvent {
	return newEvent(EventTypeHeartbeat, nil)
}

// SessionEvent represents an import session state change
type SessionEvent struct {
	ID          string                 `json:"id"`
	Status      string                 `json:"status"`
	Stats       map[string]interface{} `json:"stats"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// ProgressEvent represents import progress across the session's files
type ProgressEvent struct {
	FileID     string  `json:"fileId"`
	FileName   string  `json:"fileName"`
	Processed  int     `json:"processed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Status     string  `json:"status"`
}

// FileEvent represents one file moving through the import pipeline
type FileEvent struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"sessionId"`
	FileName  string                 `json:"fileName"`
	Status    string                 `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ExpenseEvent represents an imported expense record
type ExpenseEvent struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`
	Vendor      string  `json:"vendor,omitempty"`
}

// ErrorEvent represents an error during import
type ErrorEvent struct {
	Message string `json:"message"`
	FileID  string `json:"fileId,omitempty"`
}
