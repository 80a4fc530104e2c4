package database

import "sync"

// keyMutex serializes work per key, one path at a time.
type keyMutex struct {
	cond *sync.Cond
	held map[string]struct{}
}

func newKeyMutex() *keyMutex {
	return &keyMutex{
		cond: sync.NewCond(new(sync.Mutex)),
		held: make(map[string]struct{}),
	}
}

func (m *keyMutex) Lock(key string) {
	m.cond.L.Lock()
	defer m.cond.L.Unlock()
	for {
		if _, ok := m.held[key]; !ok {
			break
		}
		m.cond.Wait()
	}
	m.held[key] = struct{}{}
}

func (m *keyMutex) Unlock(key string) {
	m.cond.L.Lock()
	defer m.cond.L.Unlock()
	delete(m.held, key)
	m.cond.Broadcast()
}
