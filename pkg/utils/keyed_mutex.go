package utils

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes work per key while letting different keys proceed in parallel.
// Entries are dropped once no goroutine holds or waits on them.
type KeyedMutex struct {
	locks *xsync.MapOf[string, *keyedEntry]
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: xsync.NewMapOf[string, *keyedEntry]()}
}

// Lock acquires the lock for key and returns the function that releases it.
func (k *KeyedMutex) Lock(key string) func() {
	entry, _ := k.locks.Compute(key, func(old *keyedEntry, loaded bool) (*keyedEntry, bool) {
		if !loaded {
			old = &keyedEntry{}
		}
		old.refs++
		return old, false
	})

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.locks.Compute(key, func(old *keyedEntry, loaded bool) (*keyedEntry, bool) {
			if !loaded {
				return old, true
			}
			old.refs--
			return old, old.refs <= 0
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (k *KeyedMutex) Len() int {
	return k.locks.Size()
}
