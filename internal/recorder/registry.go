package recorder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("recording not found")
	ErrAlreadyActive = errors.New("user already has an active recording")
)

// Registry holds the live recorders of this process, at most one per user.
type Registry struct {
	mu     sync.RWMutex
	clock  Clock
	byID   map[uuid.UUID]*Recorder
	byUser map[uuid.UUID]uuid.UUID
}

func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock
	}
	return &Registry{
		clock:  clock,
		byID:   make(map[uuid.UUID]*Recorder),
		byUser: make(map[uuid.UUID]uuid.UUID),
	}
}

// Open creates an idle recorder for userID. A user whose previous recorder
// is still registered gets ErrAlreadyActive unless that recorder is stopped,
// in which case it is replaced.
func (reg *Registry) Open(userID, scenarioID uuid.UUID) (*Recorder, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existingID, ok := reg.byUser[userID]; ok {
		if existing := reg.byID[existingID]; existing != nil && existing.State() != StateStopped {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyActive, existingID)
		}
		delete(reg.byID, existingID)
	}
	rec := New(Options{UserID: userID, ScenarioID: scenarioID, Clock: reg.clock})
	reg.byID[rec.ID()] = rec
	reg.byUser[userID] = rec.ID()
	return rec, nil
}

func (reg *Registry) Get(id uuid.UUID) (*Recorder, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rec, ok := reg.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

func (reg *Registry) ForUser(userID uuid.UUID) (*Recorder, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	id, ok := reg.byUser[userID]
	if !ok {
		return nil, fmt.Errorf("%w: no recording for user", ErrNotFound)
	}
	return reg.byID[id], nil
}

// Close drops the recorder. Closing an unknown id is a no-op.
func (reg *Registry) Close(id uuid.UUID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rec, ok := reg.byID[id]
	if !ok {
		return
	}
	delete(reg.byID, id)
	if reg.byUser[rec.UserID()] == id {
		delete(reg.byUser, rec.UserID())
	}
}

// CloseUser drops whatever recorder userID holds, e.g. on logout.
func (reg *Registry) CloseUser(userID uuid.UUID) {
	reg.mu.Lock()
	id, ok := reg.byUser[userID]
	reg.mu.Unlock()
	if ok {
		reg.Close(id)
	}
}

func (reg *Registry) Active() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.byID)
}
