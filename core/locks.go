package core

import (
	"sync"

	"lendcore/crypto"
)

// accountLocks hands out one mutex per account. Entries are dropped once no
// caller holds or waits on them.
type accountLocks struct {
	mu      sync.Mutex
	entries map[crypto.Address]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{entries: make(map[crypto.Address]*accountLock)}
}

// lock blocks until addr is free and returns the matching unlock.
func (l *accountLocks) lock(addr crypto.Address) func() {
	l.mu.Lock()
	entry, ok := l.entries[addr]
	if !ok {
		entry = &accountLock{}
		l.entries[addr] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, addr)
		}
		l.mu.Unlock()
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
