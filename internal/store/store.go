// Package store keeps the user's health profile, position and notification
// state on the local device.
package store

import (
	"context"
	"sync"

	"airwatch/internal/types"
)

// Store persists single-user state. Getters return (zero, false, nil) when
// nothing has been saved yet.
type Store interface {
	GetProfile(ctx context.Context) (types.HealthProfile, bool, error)
	PutProfile(ctx context.Context, p types.HealthProfile) error

	GetLocation(ctx context.Context) (types.Position, bool, error)
	PutLocation(ctx context.Context, p types.Position) error

	GetNotificationState(ctx context.Context) (types.NotificationState, bool, error)
	PutNotificationState(ctx context.Context, s types.NotificationState) error
}

// Memory is an in-process Store for tests and for the report CLI.
type Memory struct {
	mu       sync.RWMutex
	profile  *types.HealthProfile
	position *types.Position
	state    *types.NotificationState
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) GetProfile(context.Context) (types.HealthProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return types.HealthProfile{}, false, nil
	}
	return *m.profile, true, nil
}

func (m *Memory) PutProfile(_ context.Context, p types.HealthProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = &p
	return nil
}

func (m *Memory) GetLocation(context.Context) (types.Position, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.position == nil {
		return types.Position{}, false, nil
	}
	return *m.position, true, nil
}

func (m *Memory) PutLocation(_ context.Context, p types.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = &p
	return nil
}

func (m *Memory) GetNotificationState(context.Context) (types.NotificationState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return types.NotificationState{}, false, nil
	}
	return *m.state, true, nil
}

func (m *Memory) PutNotificationState(_ context.Context, s types.NotificationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = &s
	return nil
}
