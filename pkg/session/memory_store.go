package session

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// MemoryConfig configures the in-memory store's eviction policy. The zero
// value disables eviction entirely, which matches the historical behavior of
// an unbounded session map but is not recommended for long-lived processes.
type MemoryConfig struct {
	// MaxIdle evicts sessions untouched for longer than this (0 = never).
	MaxIdle time.Duration
	// MaxSessions caps the session count; the least recently active
	// sessions are evicted first (0 = unbounded).
	MaxSessions int
	// SweepSchedule is a cron spec for the background sweep
	// (default "@every 5m"). Only used when eviction is enabled.
	SweepSchedule string
}

// MemoryStore keeps sessions in process memory. State is lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	lastActive map[string]time.Time
	closed     bool

	cfg   MemoryConfig
	sched *cron.Cron
}

// NewMemoryStore creates an in-memory store. When the config enables
// eviction, a background cron sweep runs until Close.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	s := &MemoryStore{
		sessions:   make(map[string]*Session),
		lastActive: make(map[string]time.Time),
		cfg:        cfg,
	}

	if cfg.MaxIdle > 0 || cfg.MaxSessions > 0 {
		spec := cfg.SweepSchedule
		if spec == "" {
			spec = "@every 5m"
		}
		s.sched = cron.New()
		if _, err := s.sched.AddFunc(spec, func() {
			if n := s.Sweep(time.Now().UTC()); n > 0 {
				log.Printf("session sweep evicted %d session(s)", n)
			}
		}); err != nil {
			log.Printf("invalid sweep schedule %q, eviction sweep disabled: %v", spec, err)
			s.sched = nil
		} else {
			s.sched.Start()
		}
	}

	return s
}

// Create makes a new session with a fresh identifier.
func (s *MemoryStore) Create(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	sess := New(NewID())
	s.sessions[sess.ID()] = sess
	s.lastActive[sess.ID()] = time.Now().UTC()
	return sess, nil
}

// Get retrieves a session by ID and refreshes its activity timestamp.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastActive[id] = time.Now().UTC()
	return sess, nil
}

// Save refreshes activity bookkeeping. Sessions are mutated in place, so
// there is nothing else to persist; a session evicted mid-turn is re-added.
func (s *MemoryStore) Save(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.sessions[sess.ID()] = sess
	s.lastActive[sess.ID()] = time.Now().UTC()
	return nil
}

// Delete removes a session. Unknown IDs are ignored.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	delete(s.sessions, id)
	delete(s.lastActive, id)
	return nil
}

// List returns the IDs of all live sessions in no particular order.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

// Len returns the current session count.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep applies the eviction policy as of now and returns how many sessions
// were evicted. Exposed so the policy is testable without waiting on cron.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	evicted := 0

	if s.cfg.MaxIdle > 0 {
		for id, last := range s.lastActive {
			if now.Sub(last) > s.cfg.MaxIdle {
				delete(s.sessions, id)
				delete(s.lastActive, id)
				evicted++
			}
		}
	}

	if s.cfg.MaxSessions > 0 && len(s.sessions) > s.cfg.MaxSessions {
		type entry struct {
			id   string
			last time.Time
		}
		entries := make([]entry, 0, len(s.lastActive))
		for id, last := range s.lastActive {
			entries = append(entries, entry{id, last})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].last.Before(entries[j].last) })

		excess := len(s.sessions) - s.cfg.MaxSessions
		for i := 0; i < excess && i < len(entries); i++ {
			delete(s.sessions, entries[i].id)
			delete(s.lastActive, entries[i].id)
			evicted++
		}
	}

	return evicted
}

// Close stops the sweep and drops all sessions.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.sched != nil {
		s.sched.Stop()
	}
	s.sessions = make(map[string]*Session)
	s.lastActive = make(map[string]time.Time)
	return nil
}
