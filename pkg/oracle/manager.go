// Copyright 2025 Certen Protocol
//
// Manager tracks the set of joined oracles and one Session per in-flight
// request. Map access is serialized by one mutex; each Session then
// serializes its own field access independently, so two requests never
// contend on each other's state.

package oracle

import (
	"sync"
	"time"

	"github.com/certen/verified-ledger/pkg/ledgererr"
	"github.com/certen/verified-ledger/pkg/threshold"
)

// Manager is the oracle session manager (C6).
type Manager struct {
	mu       sync.RWMutex
	joined   map[string]threshold.ParticipantID
	sessions map[string]*Session
}

// NewManager creates an empty manager; oracles join via Join before any
// request can be ordered against them.
func NewManager() *Manager {
	return &Manager{
		joined:   make(map[string]threshold.ParticipantID),
		sessions: make(map[string]*Session),
	}
}

// Join registers oracleID at FROST participant id pid, returning its
// position among currently joined oracles. Re-joining with the same id is
// a no-op.
func (m *Manager) Join(oracleID string, pid threshold.ParticipantID) (position int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.joined[oracleID]; !ok {
		m.joined[oracleID] = pid
	}
	return len(m.joined)
}

// ParticipantID resolves a joined oracle's FROST participant identifier.
func (m *Manager) ParticipantID(oracleID string) (threshold.ParticipantID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pid, ok := m.joined[oracleID]
	return pid, ok
}

// JoinedSnapshot returns the currently joined oracle IDs, in no particular
// order; callers that need a stable order sort it themselves.
func (m *Manager) JoinedSnapshot() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.joined))
	for id := range m.joined {
		ids = append(ids, id)
	}
	return ids
}

// OpenSession creates the oracle session for a newly-ordered request,
// seeded with the joined-oracle snapshot at ordering time. Calling it a
// second time for an already-open request is a no-op and returns the
// existing session.
func (m *Manager) OpenSession(requestID string, startedAt time.Time) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[requestID]; ok {
		return s
	}
	joined := make([]string, 0, len(m.joined))
	for id := range m.joined {
		joined = append(joined, id)
	}
	s := newSession(requestID, joined, startedAt)
	m.sessions[requestID] = s
	return s
}

// Session returns the open session for requestID, if any.
func (m *Manager) Session(requestID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[requestID]
	return s, ok
}

// DropOnTerminal removes the session for requestID. Called once a request
// reaches Quorum, Rejected, or TimedOut; a repeat call is harmless.
func (m *Manager) DropOnTerminal(requestID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, requestID)
}

// ErrOracleNotJoined is returned when a vote or commitment arrives from an
// oracle the manager has never seen joined.
var ErrOracleNotJoined = ledgererr.New(ledgererr.KindInput, "oracle_not_joined", "oracle has not joined the session manager")
