package recovery

import "sync/atomic"

// SessionStore is the in-memory guard store. The flag lives for the
// process lifetime, mirroring session-scoped storage in a browser.
type SessionStore struct {
	flag atomic.Bool
}

// NewSessionStore returns a store with the guard unset.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func (s *SessionStore) Get() bool {
	return s.flag.Load()
}

func (s *SessionStore) CompareAndSwap(old, new bool) bool {
	return s.flag.CompareAndSwap(old, new)
}

func (s *SessionStore) Clear() {
	s.flag.Store(false)
}
