package merge

import "sync"

// KeyLock provides all-or-nothing mutual exclusion over sets of string
// keys. A set is acquired only if none of its keys is currently held, so
// two in-flight arbitrations can never hold overlapping lock sets.
type KeyLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewKeyLock creates an empty key lock.
func NewKeyLock() *KeyLock {
	return &KeyLock{held: make(map[string]struct{})}
}

// TryAcquire atomically acquires every key in the set, or none of them if
// any key is already held. It never blocks.
func (l *KeyLock) TryAcquire(keys []string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, k := range keys {
		if _, ok := l.held[k]; ok {
			return false
		}
	}
	for _, k := range keys {
		l.held[k] = struct{}{}
	}
	return true
}

// Release frees the given keys. Releasing keys that are not held is a
// no-op.
func (l *KeyLock) Release(keys []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, k := range keys {
		delete(l.held, k)
	}
}

// HeldCount returns the number of keys currently locked.
func (l *KeyLock) HeldCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
