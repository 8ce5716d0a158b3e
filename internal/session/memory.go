package session

import "sync"

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[Key]Session
}

// NewMemoryStore constructs an in-memory Store. Sessions do not survive restarts.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[Key]Session),
	}
}

// Get returns a copy of the session for key if it exists.
func (m *memoryStore) Get(key Key) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[key]
	if !ok {
		return Session{}, false
	}
	return s.Clone(), true
}

// Set replaces the session for key.
func (m *memoryStore) Set(key Key, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[key] = s.Clone()
}

// Delete removes the session for key.
func (m *memoryStore) Delete(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
}

// Locker serializes work per conversation key.
type Locker struct {
	mu    sync.Mutex
	locks map[Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[Key]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
// Entries are dropped once no goroutine holds or waits for them.
func (l *Locker) Lock(key Key) func() {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
