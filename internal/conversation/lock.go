package conversation

import "sync"

// keyedMutex serializes message handling per user: concurrent messages from
// the same user queue in arrival order while different users proceed in
// parallel. Entries are reference-counted and removed when uncontended so the
// map does not grow with the lifetime user set.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*userLock)}
}

// Lock acquires the per-user lock and returns its release function.
func (k *keyedMutex) Lock(userID int64) func() {
	k.mu.Lock()
	lock, ok := k.locks[userID]
	if !ok {
		lock = &userLock{}
		k.locks[userID] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		k.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, userID)
		}
		k.mu.Unlock()
	}
}
