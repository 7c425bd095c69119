package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/srglogin/internal/store"
)

func TestMapPostgresError(t *testing.T) {
	plain := errors.New("plain error")

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantMsg string
	}{
		{name: "nil", err: nil},
		{name: "non postgres error passes through", err: plain, wantIs: plain},
		{
			name:   "organization slug unique violation",
			err:    &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintOrganizationsSlugKey},
			wantIs: store.ErrOrganizationAlreadyExists,
		},
		{
			name:   "user email unique violation",
			err:    &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintUsersOrgEmailKey},
			wantIs: store.ErrUserAlreadyExists,
		},
		{
			name:    "other unique violation",
			err:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "other_key"},
			wantMsg: "unique constraint violation: other_key",
		},
		{
			name:   "session for missing user",
			err:    &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: constraintSessionsUserFkey},
			wantIs: store.ErrUserNotFound,
		},
		{
			name:    "connection failure",
			err:     &pgconn.PgError{Code: pgerrcode.ConnectionFailure},
			wantMsg: "database connection error",
		},
		{
			name:    "unknown code",
			err:     &pgconn.PgError{Code: pgerrcode.DivisionByZero, Message: "division by zero"},
			wantMsg: "postgres error [22012]: division by zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPostgresError(tt.err)

			if tt.err == nil {
				require.NoError(t, got)
				return
			}

			if tt.wantIs != nil {
				require.ErrorIs(t, got, tt.wantIs)
			}
			if tt.wantMsg != "" {
				require.Contains(t, got.Error(), tt.wantMsg)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	require.False(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	require.False(t, isUniqueViolation(errors.New("boom")))
}
