package store

import "sync"

// lockTable is a registry of per-session mutexes, created lazily.
// Every read-modify-write against a session's documents is serialized
// through its lock; operations on different sessions proceed
// independently.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for a key, creating it on first use. Locks are
// never removed; the table is bounded by the number of sessions the
// process touches.
func (lt *lockTable) get(key string) *sync.Mutex {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lk, ok := lt.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		lt.locks[key] = lk
	}
	return lk
}
