package session

import (
	"sync"
)

// KeyedMutex serializes read-modify-write turns per session id so that
// concurrent requests for the same session never interleave. Entries
// are reference-counted and removed once unused.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for one id, blocking other holders of the
// same id only.
func (k *KeyedMutex) Lock(id string) {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the mutex for one id.
func (k *KeyedMutex) Unlock(id string) {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		k.mu.Unlock()
		panic("session: unlock of unheld keyed mutex " + id)
	}
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}
