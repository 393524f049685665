package terminal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions keeps one History per visitor for the lifetime of a page view.
// Nothing is persisted; each page load resets the visitor's history.
type Sessions struct {
	commands Commands
	seed     []Entry
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	history  *History
	lastSeen time.Time
	runs     int
}

// NewSessions creates a session store. Histories idle for longer than ttl
// are dropped by Sweep.
func NewSessions(commands Commands, ttl time.Duration, seed ...Entry) *Sessions {
	return &Sessions{
		commands: commands,
		seed:     seed,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Run is the outcome of one Execute call.
type Run struct {
	ID      string
	Entry   Entry
	Result  Result
	Entries []Entry
	// Count is how many commands the session has executed, this one
	// included. Clears and blank input do not count.
	Count int
}

// Execute runs input against the history for id.
func (s *Sessions) Execute(id, input string) Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, sess := s.lookup(id)
	entry, result := sess.history.Execute(input)
	if result == Appended || result == Unknown {
		sess.runs++
	}
	return Run{ID: id, Entry: entry, Result: result, Entries: sess.history.Entries(), Count: sess.runs}
}

// Reset replaces the history for id with a fresh seeded one, as on a page
// load. Unknown ids get a new session.
func (s *Sessions) Reset(id string) (string, []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, sess := s.lookup(id)
	sess.history = NewHistory(s.commands, s.seed...)
	sess.runs = 0
	return id, sess.history.Entries()
}

func (s *Sessions) lookup(id string) (string, *session) {
	now := s.now()
	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.lastSeen = now
		return id, sess
	}
	id = uuid.NewString()
	sess := &session{history: NewHistory(s.commands, s.seed...), lastSeen: now}
	s.sessions[id] = sess
	return id, sess
}

// Sweep drops idle sessions and reports how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
