// Package session keeps completed reviews in memory so follow-up questions can
// be answered against them.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"projectreview/internal/models"
)

const (
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

var ErrNotFound = errors.New("session not found")

type entry struct {
	sess *models.ReviewSession
	// turn serializes follow-up turns on one session.
	turn sync.Mutex
	// active counts running turns; swept entries must have none.
	active int
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	idle     time.Duration
	now      func() time.Time
}

func NewStore(idle time.Duration) *Store {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Store{
		sessions: make(map[string]*entry),
		idle:     idle,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return e.active == 0 && now.Sub(e.sess.LastAccessedAt) > s.idle
}

// Create stores sess under its ID, replacing any previous session with that ID.
func (s *Store) Create(sess *models.ReviewSession) {
	if sess == nil || sess.ID == "" {
		return
	}
	s.mu.Lock()
	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.LastAccessedAt = now
	s.sessions[sess.ID] = &entry{sess: sess}
	s.mu.Unlock()
}

// Get returns the session with id unless it has been idle longer than the timeout.
func (s *Store) Get(id string) (*models.ReviewSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok || s.expired(e, s.now()) {
		return nil, ErrNotFound
	}
	return e.sess, nil
}

// Touch marks the session as accessed now.
func (s *Store) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || s.expired(e, s.now()) {
		return ErrNotFound
	}
	e.sess.LastAccessedAt = s.now()
	return nil
}

// Delete drops the session with id, if any.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops every idle session and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if s.expired(e, now) {
			log.Printf("cleaning up session %s", id)
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// WithTurn runs fn while holding the turn lock of the session. The session is
// touched before and after fn and cannot be swept while fn runs.
func (s *Store) WithTurn(id string, fn func(*models.ReviewSession) error) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok || s.expired(e, s.now()) {
		s.mu.Unlock()
		return ErrNotFound
	}
	e.active++
	e.sess.LastAccessedAt = s.now()
	s.mu.Unlock()

	e.turn.Lock()
	defer func() {
		e.turn.Unlock()
		s.mu.Lock()
		e.active--
		e.sess.LastAccessedAt = s.now()
		s.mu.Unlock()
	}()
	return fn(e.sess)
}

// StartSweeper sweeps idle sessions every interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go s.sweepLoop(ctx, interval)
}

func (s *Store) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("swept %d idle sessions, %d remaining", n, s.Len())
			}
		}
	}
}
