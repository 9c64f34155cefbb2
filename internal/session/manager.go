package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/telemetry"
	"github.com/agrovate/farmcore/internal/transport"
)

// Manager keeps one session per user and enforces the switch contract:
// the old device's subscriptions are fully torn down before the new
// device's are opened.
type Manager struct {
	bus              transport.Bus
	topics           transport.Topics
	table            *telemetry.AliasTable
	offlineTimeout   time.Duration
	watchdogInterval time.Duration
	events           Events
	logger           *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(
	bus transport.Bus,
	topics transport.Topics,
	table *telemetry.AliasTable,
	offlineTimeout, watchdogInterval time.Duration,
	events Events,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		bus:              bus,
		topics:           topics,
		table:            table,
		offlineTimeout:   offlineTimeout,
		watchdogInterval: watchdogInterval,
		events:           events,
		logger:           logger,
		sessions:         make(map[string]*Session),
	}
}

// Activate makes deviceID the user's live session. A session for the same
// device is kept as is; a different one is stopped first.
func (m *Manager) Activate(userID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[userID]; ok {
		if existing.DeviceID() == deviceID {
			return nil
		}
		existing.Stop()
		delete(m.sessions, userID)
	}

	s, err := New(userID, deviceID, m.bus, m.topics, m.table,
		m.offlineTimeout, m.watchdogInterval, m.events, m.logger)
	if err != nil {
		return err
	}

	if err := s.Start(); err != nil {
		return err
	}

	m.sessions[userID] = s
	return nil
}

// Get returns the user's live session, nil when no device is active.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// StopAll tears down every session on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, s := range m.sessions {
		s.Stop()
		delete(m.sessions, userID)
	}
}
