package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/srglogin/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserStore defines the interface for user storage operations.
// Users are unique per (org_id, email).
type UserStore interface {
	// Get retrieves a user by ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email within an organization.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error)

	// Create creates a new user.
	// Returns ErrUserAlreadyExists if the email is already used within the organization.
	Create(ctx context.Context, user *models.User) error

	// Upsert atomically inserts the user, or, when a user with the same (org_id, email)
	// already exists, updates the stored name if it differs. No other stored field is changed.
	// On return user holds the stored record and created reports whether it was inserted.
	Upsert(ctx context.Context, user *models.User) (created bool, err error)
}
