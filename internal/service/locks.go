package service

import "sync"

// PostLocks serializes gateway actions and publishes touching the same post.
// Different posts never block each other.
type PostLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPostLocks() *PostLocks {
	return &PostLocks{locks: map[string]*sync.Mutex{}}
}

func (l *PostLocks) Lock(id string) func() {
	if l == nil {
		return func() {}
	}
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
