package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/marknotes/internal/model"
)

// EventType names a note change.
type EventType string

const (
	EventNoteCreated EventType = "note_created"
	EventNoteUpdated EventType = "note_updated"
	EventNoteDeleted EventType = "note_deleted"
)

// Event tells subscribers that a note changed. It never carries note
// content; subscribers refetch by NoteID. Seq increases by one per event
// published on a hub, so a gap means the subscriber missed an event and
// should reload the list.
type Event struct {
	Type      EventType  `json:"type"`
	NoteID    int64      `json:"noteId"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Seq       uint64     `json:"seq"`
}

func NoteCreated(n *model.Note) Event {
	return Event{Type: EventNoteCreated, NoteID: n.ID, UpdatedAt: &n.UpdatedAt}
}

func NoteUpdated(n *model.Note) Event {
	return Event{Type: EventNoteUpdated, NoteID: n.ID, UpdatedAt: &n.UpdatedAt}
}

func NoteDeleted(id int64) Event {
	return Event{Type: EventNoteDeleted, NoteID: id}
}

// Hub fans note events out to every connected subscriber.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	seq     uint64
	dropped uint64
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("subscriber connected", "subscribers", n)
}

// Unregister removes c and closes its send channel. Unregistering twice is
// a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Publish stamps e with the next sequence number and queues it for every
// subscriber. A subscriber whose buffer is full misses the event instead of
// stalling the request that caused it. The stamped event is returned.
func (h *Hub) Publish(e Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	e.Seq = h.seq

	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("marshal note event", "type", e.Type, "error", err)
		return e
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped++
			h.logger.Warn("subscriber too slow, event dropped", "type", e.Type, "note_id", e.NoteID, "seq", e.Seq)
		}
	}
	return e
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
