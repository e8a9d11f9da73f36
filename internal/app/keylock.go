package app

import (
	"slices"
	"sync"
)

// keyLock hands out one mutex per dish id. Entries are dropped once nobody holds or waits on them.
type keyLock struct {
	mu      sync.Mutex
	entries map[int64]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{entries: make(map[int64]*keyLockEntry)}
}

// lock acquires every id in ascending order and returns a func that releases them.
// Duplicate ids are locked once.
func (k *keyLock) lock(ids ...int64) (unlock func()) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*keyLockEntry, 0, len(sorted))
	for _, id := range sorted {
		e := k.acquire(id)
		e.mu.Lock()
		held = append(held, e)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.release(sorted[i])
		}
	}
}

func (k *keyLock) acquire(id int64) *keyLockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[id]
	if !ok {
		e = &keyLockEntry{}
		k.entries[id] = e
	}
	e.refs++
	return e
}

func (k *keyLock) release(id int64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e := k.entries[id]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, id)
	}
}

func (k *keyLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
