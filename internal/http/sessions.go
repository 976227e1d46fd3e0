package http

import (
	"sync"
	"time"

	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/language"
)

// clientState bundles the per-client pieces: the generation session and its
// language detection debouncer.
type clientState struct {
	session   *domain.Session
	debouncer *language.Debouncer
}

// SessionManager hands out per-client state keyed by session ID. Clients
// that never send an X-Session-Id header share the default session.
type SessionManager struct {
	providers domain.ProviderRegistry
	analytics domain.AnalyticsSink
	history   domain.HistoryRecorder
	events    domain.EventPublisher
	detector  language.Detector

	genTimeout time.Duration
	debounce   time.Duration

	mu       sync.Mutex
	sessions map[string]*clientState
}

// NewSessionManager creates a session manager. analytics, history, events
// and detector may be nil; the corresponding features are then disabled.
func NewSessionManager(
	providers domain.ProviderRegistry,
	analytics domain.AnalyticsSink,
	history domain.HistoryRecorder,
	events domain.EventPublisher,
	detector language.Detector,
	genTimeout time.Duration,
	debounce time.Duration,
) *SessionManager {
	return &SessionManager{
		providers:  providers,
		analytics:  analytics,
		history:    history,
		events:     events,
		detector:   detector,
		genTimeout: genTimeout,
		debounce:   debounce,
		sessions:   make(map[string]*clientState),
	}
}

const defaultSessionID = "default"

// get returns the state for the session ID, creating it on first use.
func (m *SessionManager) get(id string) *clientState {
	if id == "" {
		id = defaultSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		state = &clientState{
			session: domain.NewSession(m.providers, m.analytics, m.history, m.events, m.genTimeout),
		}
		if m.detector != nil {
			state.debouncer = language.NewDebouncer(m.detector, m.debounce)
		}
		m.sessions[id] = state
	}
	return state
}
