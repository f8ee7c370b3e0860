package session

import (
	"sync"

	"github.com/google/uuid"
)

// Hub tracks the live reconciler of every open shell stream
type Hub struct {
	mu     sync.RWMutex
	shells map[string]*Reconciler
}

func NewHub() *Hub {
	return &Hub{shells: make(map[string]*Reconciler)}
}

// Register stores r and returns its shell id
func (h *Hub) Register(r *Reconciler) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.shells[id] = r
	h.mu.Unlock()
	return id
}

func (h *Hub) Get(id string) (*Reconciler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.shells[id]
	return r, ok
}

// Remove drops the shell and closes its reconciler
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	r, ok := h.shells[id]
	delete(h.shells, id)
	h.mu.Unlock()
	if ok {
		r.Close()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.shells)
}

// CloseAll tears down every shell, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	shells := h.shells
	h.shells = make(map[string]*Reconciler)
	h.mu.Unlock()
	for _, r := range shells {
		r.Close()
	}
}
