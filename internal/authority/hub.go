package authority

import (
	"sync"

	"github.com/ZSmain/ordo/internal/event"
)

// hub fans accepted events out to the live subscribers of each partition.
// Delivery is per-subscriber buffered; a subscriber that stops draining
// gets dropped rather than blocking the push path.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[chan []event.Wire]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[chan []event.Wire]struct{})}
}

// subscribe registers a listener for one partition. The returned cancel
// removes the subscription and closes the channel.
func (h *hub) subscribe(storeID string) (<-chan []event.Wire, func()) {
	ch := make(chan []event.Wire, 16)

	h.mu.Lock()
	if h.subs[storeID] == nil {
		h.subs[storeID] = make(map[chan []event.Wire]struct{})
	}
	h.subs[storeID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[storeID], ch)
			if len(h.subs[storeID]) == 0 {
				delete(h.subs, storeID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// broadcast delivers an accepted batch to every subscriber of the
// partition, including the connection that pushed it.
func (h *hub) broadcast(storeID string, batch []event.Wire) {
	if len(batch) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[storeID] {
		select {
		case ch <- batch:
		default:
		}
	}
}

func (h *hub) subscriberCount(storeID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[storeID])
}
