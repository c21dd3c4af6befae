// Package keylock provides per-key mutual exclusion. The timetable
// service uses it to serialize the conflict-check-then-write window
// for a given (teacher, day) pair.
package keylock

import "sync"

// KeyLock hands out a mutex per string key. Locks are never evicted;
// the key space (teacher × weekday) is small and bounded.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyLock) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key.
func (k *KeyLock) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
