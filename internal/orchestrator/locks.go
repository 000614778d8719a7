package orchestrator

import "sync"

// actionLocks guards against duplicate in-flight actions. The key is
// (action kind, event address): distinct kinds on one event, or one kind
// on distinct events, proceed independently. It is safe for concurrent
// use.
type actionLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newActionLocks() *actionLocks {
	return &actionLocks{held: make(map[string]struct{})}
}

// TryAcquire claims the (kind, event) slot. It never blocks: a held slot
// reports false and the caller rejects the duplicate locally.
func (l *actionLocks) TryAcquire(kind, event string) bool {
	key := kind + "|" + event
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

// Release frees the slot. Safe to call for a slot that is not held.
func (l *actionLocks) Release(kind, event string) {
	key := kind + "|" + event
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
