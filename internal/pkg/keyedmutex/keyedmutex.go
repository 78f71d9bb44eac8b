// Package keyedmutex provides per-key in-process locking. It backs the
// apply-run lock when Redis is not configured, so two goroutines in one
// process still cannot enrich the same knowledge base concurrently.
package keyedmutex

import "sync"

type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock blocks until the key's mutex is held.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// TryLock acquires the key's mutex without blocking, reporting success.
func (k *KeyedMutex) TryLock(key string) bool {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	if !e.mu.TryLock() {
		k.mu.Unlock()
		return false
	}
	e.refs++
	k.mu.Unlock()
	return true
}

// Unlock releases the key's mutex, dropping the entry once unreferenced.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if ok {
		e.refs--
		if e.refs <= 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}
