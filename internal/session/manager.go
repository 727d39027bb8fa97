package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline-data/rom.report/internal/monitoring"
	"github.com/fieldline-data/rom.report/internal/timeutil"
)

// CookieName is the cookie that ties a browser to its session.
const CookieName = "romlab_session"

// Manager owns the session table. It hands sessions out by cookie and
// evicts the ones nobody has touched within the TTL.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	clock    timeutil.Clock
}

// NewManager builds a manager evicting sessions idle longer than ttl.
// A nil clock means the real one.
func NewManager(ttl time.Duration, clock timeutil.Clock) *Manager {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		clock:    clock,
	}
}

// Get returns the session with the given ID and marks it as seen.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(m.clock.Now())
	}
	return s, ok
}

// GetOrCreate returns the session with the given ID, creating it first if
// needed. An empty ID always creates a fresh session.
func (m *Manager) GetOrCreate(id string) *Session {
	now := m.clock.Now()
	if id != "" {
		m.mu.RLock()
		s, ok := m.sessions[id]
		m.mu.RUnlock()
		if ok {
			s.touch(now)
			return s
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if s, ok := m.sessions[id]; ok {
			s.touch(now)
			return s
		}
	}
	if id == "" {
		id = uuid.New().String()
	}
	s := newSession(id, now)
	m.sessions[id] = s
	return s
}

// Attach resolves the request's session from its cookie, creating one and
// setting the cookie when the browser has none (or presents a stale ID).
func (m *Manager) Attach(w http.ResponseWriter, r *http.Request) *Session {
	var id string
	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}

	if id != "" {
		if s, ok := m.Get(id); ok {
			return s
		}
	}

	s := m.GetOrCreate("")
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Remove drops a session outright, stopping any benchmark it owns.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Reset()
	}
}

// Len reports how many sessions are live.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Evict removes every session idle longer than the TTL and returns how many
// went. A zero TTL disables eviction.
func (m *Manager) Evict() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.clock.Now()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > m.ttl {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Reset()
	}
	if len(expired) > 0 {
		monitoring.Logf("session: evicted %d idle session(s), %d remain", len(expired), m.Len())
	}
	return len(expired)
}

// Run sweeps for idle sessions every interval until the context ends.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.Evict()
		}
	}
}
