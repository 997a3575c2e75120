package repository

import (
	"context"
	"sync"

	"auth-service/internal/model"
)

// MemorySessionStore is the in-process session store used in development
// mode and in tests. The mutex covers the whole compare-and-swap so it
// gives the same single-winner guarantee as the database-backed stores.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]string{}}
}

func (s *MemorySessionStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fingerprint, exists := s.sessions[userID]
	if !exists {
		return "", model.ErrSessionNotFound
	}
	return fingerprint, nil
}

func (s *MemorySessionStore) Put(_ context.Context, userID string, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = fingerprint
	return nil
}

func (s *MemorySessionStore) Swap(_ context.Context, userID string, expected string, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.sessions[userID]
	if !exists || current != expected {
		return false, nil
	}

	s.sessions[userID] = next
	return true, nil
}

func (s *MemorySessionStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}
