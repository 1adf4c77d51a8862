// Package progress is the session-keyed progress channel for long-running
// operations (provisioning, large backups): each session publishes a
// sequence of progress events ending in a terminal complete/error event,
// modeled on the teacher's ws.Hub actor shape but keyed by session id
// instead of server id.
package progress

import (
	"sync"
	"time"

	"fleetctl/internal/apperr"
)

// retention is how long a terminal session is kept around so a late
// subscriber still observes the complete/error event.
const retention = 60 * time.Second

// EventKind distinguishes the three frames a session can emit.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// Event is one frame in a session's stream.
type Event struct {
	Kind     EventKind `json:"kind"`
	Step     string    `json:"step,omitempty"`
	Percent  float64   `json:"percent,omitempty"`
	Message  string    `json:"message,omitempty"`
	Current  int64     `json:"current,omitempty"`
	Total    int64     `json:"total,omitempty"`
	ServerID string    `json:"serverId,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Session is one provisioning/backup run's event stream.
type Session struct {
	id        string
	mu        sync.Mutex
	events    []Event
	subs      map[chan Event]struct{}
	terminal  bool
	expiresAt time.Time
}

// Hub owns every live and recently-terminal Session.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session
	stop     chan struct{}
}

// NewHub starts a Hub along with its background sweeper, which evicts
// terminal sessions past their retention window.
func NewHub() *Hub {
	h := &Hub{
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	go h.sweep()
	return h
}

func (h *Hub) sweep() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			h.mu.Lock()
			for id, s := range h.sessions {
				s.mu.Lock()
				expired := s.terminal && now.After(s.expiresAt)
				s.mu.Unlock()
				if expired {
					delete(h.sessions, id)
				}
			}
			h.mu.Unlock()
		case <-h.stop:
			return
		}
	}
}

// Close stops the background sweeper.
func (h *Hub) Close() {
	close(h.stop)
}

// NewSession registers a fresh session under id, ready to receive events.
func (h *Hub) NewSession(id string) *Session {
	s := &Session{id: id, subs: make(map[chan Event]struct{})}
	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()
	return s
}

// Subscribe returns a channel delivering every event published to id from
// now on, replaying anything already published first. The returned cancel
// func must be called to release the subscription. Subscribing to an
// unknown or fully-expired session fails with apperr.UnknownSession.
func (h *Hub) Subscribe(id string) (<-chan Event, func(), error) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		return nil, nil, apperr.New(apperr.UnknownSession, "no such progress session: "+id)
	}

	ch := make(chan Event, 64)
	s.mu.Lock()
	for _, ev := range s.events {
		select {
		case ch <- ev:
		default:
		}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// Publish appends ev to the session's log and fans it out to current
// subscribers. A complete/error event marks the session terminal, starting
// its retention countdown.
func (s *Session) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return
	}
	s.events = append(s.events, ev)
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	if ev.Kind == EventComplete || ev.Kind == EventError {
		s.terminal = true
		s.expiresAt = time.Now().Add(retention)
	}
}
