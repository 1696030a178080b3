package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// Sessions keeps one Controller per browser session and closes sessions
// that have been idle for too long.
type Sessions struct {
	opts     Options
	mediaURL func(sessionID string) string
	idle     time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewSessions builds a session registry. mediaURL returns the URL prefix under
// which a session's clips are served.
func NewSessions(opts Options, idle time.Duration, mediaURL func(sessionID string) string) *Sessions {
	return &Sessions{
		opts:     opts,
		mediaURL: mediaURL,
		idle:     idle,
		logger:   opts.Logger,
		sessions: make(map[string]*Controller),
	}
}

func (s *Sessions) Create(lang string) (*Controller, error) {
	id := uuid.NewString()
	c, err := NewController(id, lang, s.mediaURL(id), s.opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[id] = c
	count := len(s.sessions)
	s.mu.Unlock()

	s.logger.Info("Session created", zap.String("session", id), zap.String("lang", lang), zap.Int("active", count))
	return c, nil
}

func (s *Sessions) Get(id string) (*Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Remove closes and forgets a session.
func (s *Sessions) Remove(id string) error {
	s.mu.Lock()
	c, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return c.Close()
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap closes every session whose last action is older than the idle
// timeout and returns how many were closed.
func (s *Sessions) Reap(now time.Time) int {
	var stale []*Controller
	s.mu.Lock()
	for id, c := range s.sessions {
		if now.Sub(c.LastActive()) > s.idle {
			stale = append(stale, c)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, c := range stale {
		if err := c.Close(); err != nil {
			s.logger.Warn("Failed to close idle session", zap.String("session", c.ID()), zap.Error(err))
		}
	}
	if len(stale) > 0 {
		s.logger.Info("Idle sessions reaped", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run reaps idle sessions until ctx is done, then closes the rest.
func (s *Sessions) Run(ctx context.Context) error {
	interval := max(s.idle/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return nil
		case now := <-ticker.C:
			s.Reap(now)
		}
	}
}

func (s *Sessions) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Controller)
	s.mu.Unlock()

	for id, c := range all {
		if err := c.Close(); err != nil {
			s.logger.Warn("Failed to close session", zap.String("session", id), zap.Error(err))
		}
	}
}
