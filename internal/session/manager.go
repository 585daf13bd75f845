package session

import (
	"sort"
	"sync"

	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/transcript"
)

// Info describes a live session.
type Info struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	State    State  `json:"state"`
}

// Manager tracks the live sessions of one server. Each session gets its own
// Mailbox so callers can poll events.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	mailboxes map[string]*Mailbox

	opts Options
	deps Deps
}

// NewManager creates an empty manager. deps.Sink, if set, receives the events
// of every session in addition to its mailbox.
func NewManager(opts Options, deps Deps) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		mailboxes: make(map[string]*Mailbox),
		opts:      opts,
		deps:      deps,
	}
}

// Start creates and starts a new session. A non-nil speakerMap overrides the
// configured one for this session.
func (m *Manager) Start(platform string, speakerMap map[string]string) (*Session, error) {
	opts := m.opts
	if speakerMap != nil {
		opts.SpeakerMap = transcript.NewSpeakerMap(speakerMap)
	}

	mb := NewMailbox(DefaultMailboxSize)
	deps := m.deps
	deps.Sink = MultiSink(mb, m.deps.Sink)

	s, err := New("", opts, deps)
	if err != nil {
		return nil, err
	}
	if _, err := s.Handle(StartCommand{Platform: platform}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mailboxes[s.ID()] = mb
	m.mu.Unlock()
	return s, nil
}

// Get returns the live session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return s, nil
}

// Events drains up to maxEvents queued events of session id.
func (m *Manager) Events(id string, maxEvents int) ([]Event, error) {
	m.mu.RLock()
	mb, ok := m.mailboxes[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return mb.Drain(maxEvents), nil
}

// Dispatch hands cmd to the live session id. A successful EndCommand also
// forgets the session; its undrained events are discarded. Sessions are
// created by Start, so a StartCommand here can only fail with ALREADY_ACTIVE.
func (m *Manager) Dispatch(id string, cmd Command) (Reply, error) {
	s, err := m.Get(id)
	if err != nil {
		return Reply{}, err
	}
	reply, err := s.Handle(cmd)
	if err != nil {
		return reply, err
	}
	if _, ok := cmd.(EndCommand); ok {
		m.mu.Lock()
		delete(m.sessions, id)
		delete(m.mailboxes, id)
		m.mu.Unlock()
	}
	return reply, nil
}

// End ends session id and forgets it.
func (m *Manager) End(id string) (Summary, error) {
	reply, err := m.Dispatch(id, EndCommand{})
	if err != nil {
		return Summary{}, err
	}
	return *reply.Summary, nil
}

// List returns the live sessions ordered by id (creation order for ULIDs).
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, Info{ID: s.ID(), Platform: s.Platform(), State: s.State()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown ends every live session and returns their final summaries.
func (m *Manager) Shutdown() []Summary {
	var out []Summary
	for _, info := range m.List() {
		if sum, err := m.End(info.ID); err == nil {
			out = append(out, sum)
		}
	}
	return out
}
