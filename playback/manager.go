package playback

import (
	"log/slog"
	"sync"
)

// Manager serializes source switches so at most one decode goroutine
// exists at a time. Opening a new source always stops and waits out the
// previous session first; two sessions never touch the decoder
// concurrently.
type Manager struct {
	log *slog.Logger

	mu      sync.Mutex
	current *Session
}

func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{log: log.With("component", "playback")}
}

// Open replaces the current session with one for path. The previous
// session is stopped synchronously before the new one is created; if
// its decode goroutine fails to exit the swap is aborted and the stop
// error returned.
func (m *Manager) Open(path string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if err := m.current.Stop(); err != nil {
			return nil, err
		}
		m.current = nil
	}

	sess, err := NewSession(path, m.log)
	if err != nil {
		return nil, err
	}
	m.log.Info("session opened", "session", sess.ID(), "source", path)
	m.current = sess
	return sess, nil
}

// Current returns the active session, or nil if none is open.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close stops the active session, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.current.Stop()
	m.current = nil
	return err
}
