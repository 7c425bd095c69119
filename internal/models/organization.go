package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents an organization (tenant) in the system.
// Organizations are addressed by slug and own two builtin groups: the default group every
// member joins and the administrator group.
type Organization struct {
	OrgID          uuid.UUID // UUIDv7
	Slug           string    // URL-safe unique name, e.g. "acme"
	Name           string
	DefaultGroupID uuid.UUID
	AdminGroupID   uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOrganization builds an organization with freshly generated IDs for the organization
// and its builtin groups.
func NewOrganization(slug, name string) (*Organization, error) {
	orgID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	defaultGroupID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	adminGroupID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now()

	return &Organization{
		OrgID:          orgID,
		Slug:           slug,
		Name:           name,
		DefaultGroupID: defaultGroupID,
		AdminGroupID:   adminGroupID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// MemberGroups returns the group memberships granted to a user provisioned through SSO:
// the default group, then the administrator group unless both are the same group.
func (o *Organization) MemberGroups() []uuid.UUID {
	groups := []uuid.UUID{o.DefaultGroupID}
	if o.AdminGroupID != o.DefaultGroupID {
		groups = append(groups, o.AdminGroupID)
	}
	return groups
}
