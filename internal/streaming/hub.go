// Package streaming delivers import session events to SSE clients.
package streaming

import (
	"context"
	"log"
	"sync"
	"time"
)

// terminalSendTimeout bounds how long a terminal event waits on a slow
// consumer before the broadcaster gives up on it
const terminalSendTimeout = 100 * time.Millisecond

// terminalDrainWindow is how long the fan-out loop lingers after a
// terminal event so clients can drain their channels before teardown
const terminalDrainWindow = 100 * time.Millisecond

// isTerminal reports whether an event ends the session's stream
func isTerminal(t EventType) bool {
	return t == EventTypeComplete || t == EventTypeError
}

// Client represents a connected SSE client
type Client struct {
	Events chan SSEEvent
}

// NewClient creates a new SSE client
func NewClient() *Client {
	return &Client{
		Events: make(chan SSEEvent, 10),
	}
}

// SessionBroadcaster fans events out to every client watching one
// import session. A terminal event ends the session: the fan-out loop
// delivers it, lingers for the drain window, then tears the session
// down and releases the hub's slot.
type SessionBroadcaster struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	events   chan SSEEvent
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	// onStop, when set, runs once after teardown so the owning hub can
	// drop its reference
	onStop func()
}

// NewSessionBroadcaster creates a broadcaster bound to the given context
func NewSessionBroadcaster(ctx context.Context) *SessionBroadcaster {
	ctx, cancel := context.WithCancel(ctx)
	return &SessionBroadcaster{
		clients: make(map[*Client]bool),
		events:  make(chan SSEEvent, 100),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// finished reports whether the broadcaster has been torn down
func (b *SessionBroadcaster) finished() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Register adds a client to the broadcaster
func (b *SessionBroadcaster) Register(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = true
	log.Printf("INFO: Stream client joined, %d watching", len(b.clients))
}

// Unregister removes a client from the broadcaster
func (b *SessionBroadcaster) Unregister(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; !ok {
		return
	}
	delete(b.clients, client)
	// teardown already closed every client channel
	if !b.finished() {
		close(client.Events)
	}
	log.Printf("INFO: Stream client left, %d watching", len(b.clients))
}

// ClientCount returns the number of connected clients
func (b *SessionBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast queues an event for fan-out. Terminal events wait up to
// terminalSendTimeout for queue space; progress events are dropped
// when the queue is full.
func (b *SessionBroadcaster) Broadcast(event SSEEvent) {
	if b.finished() {
		return
	}

	if isTerminal(event.Type) {
		select {
		case b.events <- event:
		case <-b.done:
		case <-time.After(terminalSendTimeout):
			log.Printf("ERROR: Dropped terminal %s event, stream clients may hang", event.Type)
		}
		return
	}

	select {
	case b.events <- event:
	case <-b.done:
	default:
		log.Printf("WARN: Event queue full, dropping %s event", event.Type)
	}
}

// Stop tears the broadcaster down: closes every client channel, stops
// the fan-out loop, and releases the hub's session slot
func (b *SessionBroadcaster) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		close(b.done)
		for client := range b.clients {
			close(client.Events)
			delete(b.clients, client)
		}
		b.mu.Unlock()
		b.cancel()
		if b.onStop != nil {
			b.onStop()
		}
	})
}

// Start launches the fan-out loop. The loop ends after delivering a
// terminal event or when the session context is cancelled.
func (b *SessionBroadcaster) Start() {
	go func() {
		defer b.Stop()
		for {
			select {
			case <-b.ctx.Done():
				return
			case event := <-b.events:
				b.fanOut(event)
				if isTerminal(event.Type) {
					time.Sleep(terminalDrainWindow)
					return
				}
			}
		}
	}()
}

// fanOut delivers one event to every registered client. Slow clients
// skip progress events; terminal events get a bounded wait because a
// client that misses one never sees its stream close cleanly.
func (b *SessionBroadcaster) fanOut(event SSEEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		if isTerminal(event.Type) {
			select {
			case client.Events <- event:
			case <-time.After(terminalSendTimeout / 2):
				log.Printf("ERROR: Stream client too slow for terminal %s event", event.Type)
			}
			continue
		}

		select {
		case client.Events <- event:
		default:
			log.Printf("WARN: Stream client behind, skipping %s event", event.Type)
		}
	}
}

// StreamHub hands out one broadcaster per import session and reclaims
// it when the session delivers its terminal event or the last client
// leaves.
type StreamHub struct {
	mu           sync.RWMutex
	broadcasters map[string]*SessionBroadcaster
}

// NewStreamHub creates a new stream hub
func NewStreamHub() *StreamHub {
	return &StreamHub{
		broadcasters: make(map[string]*SessionBroadcaster),
	}
}

// Register attaches a new client to the session's broadcaster, starting
// one when needed. A broadcaster that already delivered its terminal
// event is replaced so a late watcher is not parked on a dead stream.
func (h *StreamHub) Register(ctx context.Context, sessionID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := NewClient()

	broadcaster, exists := h.broadcasters[sessionID]
	if !exists || broadcaster.finished() {
		fresh := NewSessionBroadcaster(ctx)
		fresh.onStop = func() { h.remove(sessionID, fresh) }
		h.broadcasters[sessionID] = fresh
		fresh.Start()
		log.Printf("INFO: Started broadcaster for session %s", sessionID)
		broadcaster = fresh
	}

	broadcaster.Register(client)
	return client
}

// Unregister removes a client from a session, tearing the broadcaster
// down when the last client leaves
func (h *StreamHub) Unregister(sessionID string, client *Client) {
	h.mu.Lock()
	broadcaster, exists := h.broadcasters[sessionID]
	h.mu.Unlock()
	if !exists {
		return
	}

	broadcaster.Unregister(client)

	if broadcaster.ClientCount() == 0 {
		log.Printf("INFO: Last client left session %s, reclaiming broadcaster", sessionID)
		broadcaster.Stop()
	}
}

// remove drops the hub's reference once a broadcaster has stopped
func (h *StreamHub) remove(sessionID string, b *SessionBroadcaster) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.broadcasters[sessionID] == b {
		delete(h.broadcasters, sessionID)
	}
}

// Broadcast sends an event to all clients of a session
func (h *StreamHub) Broadcast(sessionID string, event SSEEvent) {
	h.mu.RLock()
	broadcaster, exists := h.broadcasters[sessionID]
	h.mu.RUnlock()

	if !exists {
		log.Printf("WARN: No broadcaster for session %s, dropping %s event", sessionID, event.Type)
		return
	}

	broadcaster.Broadcast(event)
}

// IsRunning checks if a session broadcaster exists
func (h *StreamHub) IsRunning(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.broadcasters[sessionID]
	return exists
}
