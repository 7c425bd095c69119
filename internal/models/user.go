package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// User is a person who has logged in to an organization.
// Users are unique by (OrgID, Email); the same email may exist in several organizations.
type User struct {
	UserID uuid.UUID // UUIDv7
	OrgID  uuid.UUID // FK to organizations
	Name   string    // Display name, kept in sync with the identity provider
	Email  string

	// Group memberships, order is not significant
	Groups []uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InGroup reports whether the user is a member of the given group.
func (u *User) InGroup(groupID uuid.UUID) bool {
	return slices.Contains(u.Groups, groupID)
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	clone := *u
	clone.Groups = slices.Clone(u.Groups)
	return &clone
}
