// Package memory holds process-local implementations of core ports.
package memory

import (
	"context"
	"sync"
)

// OverrideStore keeps active-workspace overrides in a process-local map.
// Replicas do not share it; deployments with more than one replica should
// use the Redis store instead.
type OverrideStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewOverrideStore() *OverrideStore {
	return &OverrideStore{m: make(map[string]string)}
}

func (s *OverrideStore) Get(_ context.Context, identityID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.m[identityID]
	return ws, ok, nil
}

func (s *OverrideStore) Set(_ context.Context, identityID, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[identityID] = workspaceID
	return nil
}

func (s *OverrideStore) Clear(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, identityID)
	return nil
}
