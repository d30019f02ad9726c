// Package serverstate tracks the lifecycle of the server process
// (not_ready, ready, draining). The state lives in a pluggable Store so that
// replicas sharing a Redis instance agree on whether they are draining.
package serverstate

import "sync"

// Lifecycle values reported by GetState.
const (
	StatusNotReady = "not_ready"
	StatusReady    = "ready"
	StatusDraining = "draining"
	StatusUnknown  = "unknown"
)

// State is the persisted server state.
type State struct {
	Status   string `json:"status"`
	Draining bool   `json:"draining"`
}

// Store persists State.
type Store interface {
	Load() State
	Store(State)
}

type memoryStore struct {
	mu sync.RWMutex
	st State
}

// NewMemoryStore returns a process-local Store.
func NewMemoryStore() Store {
	return &memoryStore{st: State{Status: StatusNotReady}}
}

func (m *memoryStore) Load() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st
}

func (m *memoryStore) Store(s State) {
	m.mu.Lock()
	m.st = s
	m.mu.Unlock()
}

var (
	activeMu sync.RWMutex
	active   = NewMemoryStore()
)

// UseStore replaces the active store.
func UseStore(s Store) {
	activeMu.Lock()
	active = s
	activeMu.Unlock()
}

func current() Store {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// SetState sets the server state string, preserving the draining flag.
func SetState(status string) {
	s := current()
	st := s.Load()
	st.Status = status
	s.Store(st)
}

// MarkReady records a serving, non-draining server. A drain flag left in a
// shared store by a previous process is cleared.
func MarkReady() {
	current().Store(State{Status: StatusReady})
}

// GetState returns the current server state.
func GetState() string {
	st := current().Load()
	if st.Status == "" {
		return StatusUnknown
	}
	return st.Status
}

// StartDrain marks the server as draining.
func StartDrain() {
	current().Store(State{Status: StatusDraining, Draining: true})
}

// IsDraining reports whether the server is draining.
func IsDraining() bool {
	return current().Load().Draining
}
