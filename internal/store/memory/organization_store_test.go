package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
)

func newTestOrganization(t *testing.T, slug string) *models.Organization {
	t.Helper()

	org, err := models.NewOrganization(slug, slug+" org")
	require.NoError(t, err)

	return org
}

func TestOrganizationStore_Create(t *testing.T) {
	t.Run("create new organization", func(t *testing.T) {
		st := NewOrganizationStore()
		ctx := context.Background()

		org := newTestOrganization(t, "acme")
		require.NoError(t, st.Create(ctx, org))

		got, err := st.Get(ctx, org.OrgID)
		require.NoError(t, err)
		require.Equal(t, org, got)
	})

	t.Run("duplicate id returns error", func(t *testing.T) {
		st := NewOrganizationStore()
		ctx := context.Background()

		org := newTestOrganization(t, "acme")
		require.NoError(t, st.Create(ctx, org))

		err := st.Create(ctx, org)
		require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)
	})

	t.Run("duplicate slug returns error", func(t *testing.T) {
		st := NewOrganizationStore()
		ctx := context.Background()

		require.NoError(t, st.Create(ctx, newTestOrganization(t, "acme")))

		err := st.Create(ctx, newTestOrganization(t, "acme"))
		require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)
	})
}

func TestOrganizationStore_GetBySlug(t *testing.T) {
	st := NewOrganizationStore()
	ctx := context.Background()

	org := newTestOrganization(t, "acme")
	require.NoError(t, st.Create(ctx, org))

	got, err := st.GetBySlug(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, org.OrgID, got.OrgID)

	// returned value is a copy
	got.Name = "changed"
	again, err := st.GetBySlug(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, org.Name, again.Name)

	_, err = st.GetBySlug(ctx, "missing")
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)
}

func TestOrganizationStore_Update(t *testing.T) {
	st := NewOrganizationStore()
	ctx := context.Background()

	org := newTestOrganization(t, "acme")
	require.NoError(t, st.Create(ctx, org))

	org.Name = "Acme Renamed"
	require.NoError(t, st.Update(ctx, org))

	got, err := st.GetBySlug(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "Acme Renamed", got.Name)

	err = st.Update(ctx, &models.Organization{OrgID: uuid.New()})
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)
}

func TestOrganizationStore_List(t *testing.T) {
	st := NewOrganizationStore()
	ctx := context.Background()

	for _, slug := range []string{"zeta", "acme", "mid"} {
		require.NoError(t, st.Create(ctx, newTestOrganization(t, slug)))
	}

	orgs, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 3)
	require.Equal(t, "acme", orgs[0].Slug)
	require.Equal(t, "mid", orgs[1].Slug)
	require.Equal(t, "zeta", orgs[2].Slug)
}
