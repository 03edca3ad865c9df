// Package lifecycle is an in-process hub for application
// foreground/background transitions. Hosts wire their platform signal
// (mobile shell bridge, SIGTSTP handler, websocket presence) into a Hub and
// hand it to the entitlement validator.
package lifecycle

import "sync"

// Hub fans foreground/background transitions out to subscribers.
// The zero value is not usable; call NewHub.
type Hub struct {
	mu         sync.Mutex
	nextID     int
	foreground map[int]func()
	background map[int]func()
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{foreground: make(map[int]func()), background: make(map[int]func())}
}

// OnForeground registers fn for foreground transitions and returns its
// unsubscribe func.
func (h *Hub) OnForeground(fn func()) (unsubscribe func()) {
	return h.register(h.foreground, fn)
}

// OnBackground registers fn for background transitions and returns its
// unsubscribe func.
func (h *Hub) OnBackground(fn func()) (unsubscribe func()) {
	return h.register(h.background, fn)
}

// Foreground announces a transition to the foreground.
func (h *Hub) Foreground() { h.emit(h.foreground) }

// Background announces a transition to the background.
func (h *Hub) Background() { h.emit(h.background) }

func (h *Hub) register(m map[int]func(), fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	m[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(m, id)
	}
}

func (h *Hub) emit(m map[int]func()) {
	h.mu.Lock()
	fns := make([]func(), 0, len(m))
	for _, fn := range m {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
