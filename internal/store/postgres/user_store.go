package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
)

const userColumns = `user_id, org_id, name, email, groups, created_at, updated_at`

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	db DB
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(db DB) *UserStore {
	return &UserStore{
		db: db,
	}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	return s.getOne(ctx, query, userID)
}

// GetByEmail retrieves a user by email within an organization.
func (s *UserStore) GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE org_id = $1 AND email = $2`

	return s.getOne(ctx, query, orgID, email)
}

func (s *UserStore) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&user.UserID,
		&user.OrgID,
		&user.Name,
		&user.Email,
		&user.Groups,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", mapPostgresError(err))
	}

	return &user, nil
}

// Create creates a new user in the database.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query,
		user.UserID,
		user.OrgID,
		user.Name,
		user.Email,
		user.Groups,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("user_id", user.UserID.String()).
		Str("org_id", user.OrgID.String()).
		Msg("Created user")

	return nil
}

// Upsert inserts the user or syncs the stored name in a single statement.
// The conflict branch only rewrites name (and bumps updated_at when the name changed), so
// the groups of an existing user are never touched. xmax is zero only for freshly inserted rows.
func (s *UserStore) Upsert(ctx context.Context, user *models.User) (bool, error) {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT users_org_id_email_key DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = CASE
				WHEN users.name IS DISTINCT FROM EXCLUDED.name THEN EXCLUDED.updated_at
				ELSE users.updated_at
			END
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted
	`

	var created bool
	err := s.db.QueryRow(ctx, query,
		user.UserID,
		user.OrgID,
		user.Name,
		user.Email,
		user.Groups,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(
		&user.UserID,
		&user.OrgID,
		&user.Name,
		&user.Email,
		&user.Groups,
		&user.CreatedAt,
		&user.UpdatedAt,
		&created,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert user: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("user_id", user.UserID.String()).
		Str("org_id", user.OrgID.String()).
		Bool("created", created).
		Msg("Upserted user")

	return created, nil
}
