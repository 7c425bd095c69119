package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
)

var organizationColumnNames = []string{"org_id", "slug", "name", "default_group_id", "admin_group_id", "created_at", "updated_at"}

func newMockDB(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock
}

func newTestOrganization(t *testing.T) *models.Organization {
	t.Helper()

	org, err := models.NewOrganization("acme", "Acme Corp")
	require.NoError(t, err)

	return org
}

func organizationRow(org *models.Organization) []any {
	return []any{org.OrgID, org.Slug, org.Name, org.DefaultGroupID, org.AdminGroupID, org.CreatedAt, org.UpdatedAt}
}

func TestOrganizationStore_Create(t *testing.T) {
	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "success"},
		{
			name:    "duplicate slug",
			execErr: &pgconn.PgError{Code: "23505", ConstraintName: constraintOrganizationsSlugKey},
			wantErr: store.ErrOrganizationAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockDB(t)
			st := NewOrganizationStore(mock)
			org := newTestOrganization(t)

			exp := mock.ExpectExec("INSERT INTO organizations").WithArgs(organizationRow(org)...)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := st.Create(context.Background(), org)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOrganizationStore_GetBySlug(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock := newMockDB(t)
		st := NewOrganizationStore(mock)
		org := newTestOrganization(t)

		mock.ExpectQuery("SELECT .+ FROM organizations WHERE slug = ").
			WithArgs("acme").
			WillReturnRows(pgxmock.NewRows(organizationColumnNames).AddRow(organizationRow(org)...))

		got, err := st.GetBySlug(context.Background(), "acme")
		require.NoError(t, err)
		require.Equal(t, org, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockDB(t)
		st := NewOrganizationStore(mock)

		mock.ExpectQuery("SELECT .+ FROM organizations WHERE slug = ").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := st.GetBySlug(context.Background(), "missing")
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMockDB(t)
		st := NewOrganizationStore(mock)

		mock.ExpectQuery("SELECT .+ FROM organizations WHERE slug = ").
			WithArgs("acme").
			WillReturnError(errors.New("connection reset"))

		_, err := st.GetBySlug(context.Background(), "acme")
		require.Error(t, err)
		require.NotErrorIs(t, err, store.ErrOrganizationNotFound)
		require.Contains(t, err.Error(), "connection reset")
	})
}

func TestOrganizationStore_Update(t *testing.T) {
	mock := newMockDB(t)
	st := NewOrganizationStore(mock)
	org := newTestOrganization(t)

	mock.ExpectExec("UPDATE organizations SET").
		WithArgs(org.OrgID, "Renamed", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE organizations SET").
		WithArgs(org.OrgID, "Renamed", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	org.Name = "Renamed"
	require.NoError(t, st.Update(context.Background(), org))
	require.ErrorIs(t, st.Update(context.Background(), org), store.ErrOrganizationNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationStore_List(t *testing.T) {
	mock := newMockDB(t)
	st := NewOrganizationStore(mock)

	first := newTestOrganization(t)
	second, err := models.NewOrganization("beta", "Beta")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM organizations ORDER BY slug").
		WillReturnRows(pgxmock.NewRows(organizationColumnNames).
			AddRow(organizationRow(first)...).
			AddRow(organizationRow(second)...))

	orgs, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	require.Equal(t, "acme", orgs[0].Slug)
	require.Equal(t, "beta", orgs[1].Slug)
	require.NoError(t, mock.ExpectationsWereMet())
}
