package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
)

type orgEmail struct {
	orgID uuid.UUID
	email string
}

// UserStore implements store.UserStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	users        map[uuid.UUID]*models.User // user_id -> User
	usersByEmail map[orgEmail]*models.User  // (org_id, email) -> User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:        make(map[uuid.UUID]*models.User),
		usersByEmail: make(map[orgEmail]*models.User),
	}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return user.Clone(), nil
}

// GetByEmail retrieves a user by email within an organization.
func (s *UserStore) GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByEmail[orgEmail{orgID: orgID, email: email}]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return user.Clone(), nil
}

// Create creates a new user in memory.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insert(user)
}

// Upsert inserts the user or syncs the stored name, holding the write lock for the whole
// check-then-write so concurrent first logins cannot both insert.
func (s *UserStore) Upsert(ctx context.Context, user *models.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.usersByEmail[orgEmail{orgID: user.OrgID, email: user.Email}]
	if !exists {
		if err := s.insert(user); err != nil {
			return false, err
		}
		return true, nil
	}

	if existing.Name != user.Name {
		existing.Name = user.Name
		existing.UpdatedAt = time.Now()
	}

	*user = *existing.Clone()

	return false, nil
}

// insert must be called with the write lock held.
func (s *UserStore) insert(user *models.User) error {
	key := orgEmail{orgID: user.OrgID, email: user.Email}

	if _, exists := s.users[user.UserID]; exists {
		return store.ErrUserAlreadyExists
	}

	if _, exists := s.usersByEmail[key]; exists {
		return store.ErrUserAlreadyExists
	}

	// Clone to avoid external modifications
	clone := user.Clone()
	s.users[user.UserID] = clone
	s.usersByEmail[key] = clone

	return nil
}
