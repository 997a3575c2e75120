package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"auth-service/internal/model"
)

// MemoryUserStore backs the fully in-process development mode and the
// handler tests. Lookups are case-insensitive on email, matching the
// PostgreSQL index.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: map[string]model.User{}}
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.ToLower(user.Email) == key {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *MemoryUserStore) FindByGoogleSubject(_ context.Context, subject string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if subject != "" {
		for _, user := range s.users {
			if user.GoogleSubject == subject {
				return user, nil
			}
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *MemoryUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryUserStore) Create(_ context.Context, u model.User) error {
	key := strings.ToLower(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Same uniqueness the users_email_lower_idx index enforces.
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == key {
			return model.ErrUserAlreadyExists
		}
	}

	s.users[u.ID] = u
	return nil
}

func (s *MemoryUserStore) LinkGoogleSubject(_ context.Context, userID string, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return model.ErrUserNotFound
	}

	user.GoogleSubject = subject
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return nil
}
