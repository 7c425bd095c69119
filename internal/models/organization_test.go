package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewOrganization(t *testing.T) {
	org, err := NewOrganization("acme", "Acme Corp")
	require.NoError(t, err)

	require.Equal(t, "acme", org.Slug)
	require.Equal(t, "Acme Corp", org.Name)
	require.NotEqual(t, uuid.Nil, org.OrgID)
	require.NotEqual(t, org.DefaultGroupID, org.AdminGroupID)
	require.False(t, org.CreatedAt.IsZero())
}

func TestOrganization_MemberGroups(t *testing.T) {
	t.Run("default and admin groups", func(t *testing.T) {
		org, err := NewOrganization("acme", "Acme Corp")
		require.NoError(t, err)

		require.Equal(t, []uuid.UUID{org.DefaultGroupID, org.AdminGroupID}, org.MemberGroups())
	})

	t.Run("admin group same as default group", func(t *testing.T) {
		groupID := uuid.New()
		org := &Organization{DefaultGroupID: groupID, AdminGroupID: groupID}

		require.Equal(t, []uuid.UUID{groupID}, org.MemberGroups())
	})
}

func TestUser_Clone(t *testing.T) {
	groupID := uuid.New()
	user := &User{Name: "Jane", Groups: []uuid.UUID{groupID}}

	clone := user.Clone()
	clone.Groups[0] = uuid.New()

	require.True(t, user.InGroup(groupID))
	require.False(t, clone.InGroup(groupID))
}
