package services

import "sync"

// HandleLocks hands out one mutex per account handle. Waiters are not
// served in arrival order. The zero value is ready to use.
type HandleLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock blocks until handle is free and returns the matching unlock.
func (h *HandleLocks) Lock(handle string) (unlock func()) {
	h.mu.Lock()
	if h.locks == nil {
		h.locks = make(map[string]*sync.Mutex)
	}
	l, ok := h.locks[handle]
	if !ok {
		l = &sync.Mutex{}
		h.locks[handle] = l
	}
	h.mu.Unlock()

	l.Lock()
	return l.Unlock
}
