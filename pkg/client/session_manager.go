package client

import (
	"sync"

	"golang.org/x/exp/slices"
)

// SessionData is the presence information published to session subscribers. Session is empty
// until the server has told the client who it is.
type SessionData struct {
	Session  string
	Sessions []string
}

// SessionManager tracks the current session and the sorted set of live sessions.
type SessionManager struct {
	mu       sync.Mutex
	current  string
	set      map[string]struct{}
	sessions []string
	channel  SubscriberChannel[SessionData]
}

func NewSessionManager() *SessionManager {
	return &SessionManager{set: map[string]struct{}{}, sessions: []string{}}
}

func (m *SessionManager) Session() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *SessionManager) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sessions)
}

// Subscribe immediately calls fn with the current data and then on every mutation.
func (m *SessionManager) Subscribe(fn func(SessionData)) func() error {
	m.mu.Lock()
	data := m.dataLocked()
	m.mu.Unlock()
	fn(data)
	return m.channel.SubscribeFunc(fn)
}

func (m *SessionManager) AddSession(session string) {
	m.mutate(func() {
		m.set[session] = struct{}{}
	})
}

func (m *SessionManager) RemoveSession(session string) {
	m.mutate(func() {
		delete(m.set, session)
	})
}

// SetSessions replaces the current session and the whole set.
func (m *SessionManager) SetSessions(current string, sessions []string) {
	m.mutate(func() {
		m.current = current
		m.set = make(map[string]struct{}, len(sessions))
		for _, s := range sessions {
			m.set[s] = struct{}{}
		}
	})
}

// mutate applies fn and publishes unconditionally, even when nothing observably changed.
func (m *SessionManager) mutate(fn func()) {
	m.mu.Lock()
	fn()
	sessions := make([]string, 0, len(m.set))
	for s := range m.set {
		sessions = append(sessions, s)
	}
	slices.Sort(sessions)
	m.sessions = sessions
	data := m.dataLocked()
	m.mu.Unlock()

	m.channel.Send(data)
}

func (m *SessionManager) dataLocked() SessionData {
	return SessionData{Session: m.current, Sessions: slices.Clone(m.sessions)}
}
