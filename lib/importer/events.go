package importer

import "sync"

// Phase is where the import pipeline currently is.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDownloading Phase = "downloading"
	PhaseUnpacking   Phase = "unpacking"
	PhaseImporting   Phase = "importing"
	PhaseFinalizing  Phase = "finalizing"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Event is one progress notification. During download Current/Total are
// bytes; during import they are records. Failed counts records that were
// skipped or only partially inserted.
type Event struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
	Current int64  `json:"current"`
	Total   int64  `json:"total"`
	Failed  int64  `json:"failed,omitempty"`
}

const subscriberBuffer = 64

// Hub fans events out to subscribers. Publishing never blocks: a subscriber
// that falls behind misses events instead of stalling the import.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new listener. The returned cancel func must be
// called when the listener goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has room for it.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
