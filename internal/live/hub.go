package live

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/light-recon/internal/profile"
)

// ListenerBuffer is the number of snapshots queued per listener before new
// ones are dropped for it.
const ListenerBuffer = 16

// Snapshot is the published state of a live session after one frame.
type Snapshot struct {
	SessionID uuid.UUID        `json:"session_id"`
	State     State            `json:"state"`
	Label     string           `json:"label,omitempty"`
	Profile   *profile.Profile `json:"profile,omitempty"`
	Faces     []Face           `json:"faces"`
	Frame     int              `json:"frame"`
	Processed int              `json:"processed"`
	Camera    int              `json:"camera"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Hub fans snapshots out to listeners and remembers the latest one.
type Hub struct {
	mu        sync.RWMutex
	listeners []chan Snapshot
	last      *Snapshot
}

func NewHub() *Hub {
	return &Hub{}
}

// AddListener registers a new listener channel.
func (h *Hub) AddListener() chan Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Snapshot, ListenerBuffer)
	h.listeners = append(h.listeners, ch)
	return ch
}

// RemoveListener unregisters and closes ch.
func (h *Hub) RemoveListener(ch chan Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, listener := range h.listeners {
		if listener == ch {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish stores s as the latest snapshot and sends it to every listener.
func (h *Hub) Publish(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &s
	for _, listener := range h.listeners {
		select {
		case listener <- s:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Latest returns the most recent snapshot, or false before the first one.
func (h *Hub) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return Snapshot{}, false
	}
	return *h.last, true
}

// Listeners returns the number of registered listeners.
func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
