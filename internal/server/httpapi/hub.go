package httpapi

import "sync"

// Hub fans document-change signals out to watch connections. A watcher
// registers the exact path it observes (a collection or a single document);
// a mutation kicks both the document's watchers and its collection's.
//
// Kicks are edge signals, not payloads: the websocket handler re-reads the
// snapshot on each kick, so a slow consumer coalesces bursts instead of
// queueing them.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{watchers: map[string]map[chan struct{}]struct{}{}}
}

// Watch registers a watcher for path and returns its kick channel plus a
// release function. The channel has capacity one; a kick during re-read is
// retained, further kicks coalesce.
func (h *Hub) Watch(path string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	set, ok := h.watchers[path]
	if !ok {
		set = map[chan struct{}]struct{}{}
		h.watchers[path] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	release := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.watchers[path]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.watchers, path)
			}
		}
	}
	return ch, release
}

// DocumentChanged implements services.Notifier.
func (h *Hub) DocumentChanged(docPath, collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kick(docPath)
	if collection != docPath {
		h.kick(collection)
	}
}

func (h *Hub) kick(path string) {
	for ch := range h.watchers[path] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
