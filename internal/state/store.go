package state

import (
	"sync"
)

// Store owns the current Project of one session and serializes dispatches.
type Store struct {
	mu          sync.RWMutex
	project     Project
	subscribers map[chan Project]struct{}
}

func NewStore(initial Project) *Store {
	return &Store{
		project:     initial,
		subscribers: make(map[chan Project]struct{}),
	}
}

func (s *Store) Snapshot() Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project
}

// Dispatch reduces a into the current project, notifies subscribers and
// returns the new snapshot.
func (s *Store) Dispatch(a Action) Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.project = Reduce(s.project, a)
	for ch := range s.subscribers {
		publish(ch, s.project)
	}
	return s.project
}

// Subscribe returns a channel that always yields the latest snapshot; slow
// readers skip intermediate ones. The channel is closed by cancel.
func (s *Store) Subscribe() (<-chan Project, func()) {
	ch := make(chan Project, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	publish(ch, s.project)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish replaces whatever the subscriber has not read yet.
func publish(ch chan Project, p Project) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- p:
	default:
	}
}
