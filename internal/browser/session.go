package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Page on a released session.
var ErrClosed = errors.New("browser: session closed")

// SessionKey identifies the browser session of one run.
type SessionKey struct {
	Handle string
	RunID  string
}

func (k SessionKey) String() string { return k.Handle + "::" + k.RunID }

// FileStem is a filename-safe form of the key.
func (k SessionKey) FileStem() string { return k.Handle + "--" + k.RunID }

// Session lazily launches its browser on first use.
type Session struct {
	Key SessionKey

	opts     LaunchOptions
	launcher Launcher

	mu     sync.Mutex
	page   Page
	closed bool
}

// Page returns the session's page, launching the browser if needed.
func (s *Session) Page(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.page != nil {
		return s.page, nil
	}
	p, err := s.launcher.Launch(ctx, s.opts)
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", s.Key, err)
	}
	s.page = p
	return p, nil
}

// Current returns the page if the browser was launched, else nil.
func (s *Session) Current() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *Session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.page == nil {
		return nil
	}
	err := s.page.Close()
	s.page = nil
	return err
}

// SessionManager owns browser sessions keyed by (handle, run_id).
// Acquire is create-or-get; Release tears a session down. It is safe for
// concurrent use.
type SessionManager struct {
	launcher Launcher
	log      zerolog.Logger

	mu       sync.Mutex
	sessions map[SessionKey]*Session
}

// NewSessionManager returns a manager launching browsers with l.
func NewSessionManager(l Launcher, log zerolog.Logger) *SessionManager {
	return &SessionManager{launcher: l, log: log, sessions: make(map[SessionKey]*Session)}
}

// Acquire returns the session for key, creating it when absent.
func (m *SessionManager) Acquire(key SessionKey, opts LaunchOptions) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s
	}
	if opts.Handle == "" {
		opts.Handle = key.Handle
	}
	s := &Session{Key: key, opts: opts, launcher: m.launcher}
	m.sessions[key] = s
	return s
}

// Release closes the session for key and forgets it. Unknown keys are a no-op.
func (m *SessionManager) Release(key SessionKey) error {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.close()
}

// With acquires the session for key, runs fn, and always releases it.
func (m *SessionManager) With(key SessionKey, opts LaunchOptions, fn func(*Session) error) (err error) {
	s := m.Acquire(key, opts)
	defer func() {
		if cerr := m.Release(key); cerr != nil {
			m.log.Warn().Err(cerr).Str("session", key.String()).Msg("session close failed")
		}
	}()
	return fn(s)
}

// Len reports the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll releases every session; used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	keys := make([]SessionKey, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	m.mu.Unlock()
	for _, k := range keys {
		if err := m.Release(k); err != nil {
			m.log.Warn().Err(err).Str("session", k.String()).Msg("session close failed")
		}
	}
}
