//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := NewPool(ctx, &PoolConfig{
		ConnString: fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestIntegration_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	orgs := NewOrganizationStore(pool)
	users := NewUserStore(pool)
	sessions := NewSessionStore(pool)

	org, err := models.NewOrganization("acme", "Acme Corp")
	require.NoError(t, err)
	require.NoError(t, orgs.Create(ctx, org))

	t.Run("migrations are idempotent", func(t *testing.T) {
		require.NoError(t, Migrate(ctx, pool))
	})

	t.Run("duplicate slug", func(t *testing.T) {
		dup, err := models.NewOrganization("acme", "Other")
		require.NoError(t, err)
		require.ErrorIs(t, orgs.Create(ctx, dup), store.ErrOrganizationAlreadyExists)
	})

	newUser := func(name string) *models.User {
		userID, err := uuid.NewV7()
		require.NoError(t, err)
		now := time.Now().UTC().Truncate(time.Microsecond)
		return &models.User{
			UserID:    userID,
			OrgID:     org.OrgID,
			Name:      name,
			Email:     "jane@example.com",
			Groups:    org.MemberGroups(),
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	var userID uuid.UUID

	t.Run("upsert creates user with member groups", func(t *testing.T) {
		user := newUser("Jane")
		created, err := users.Upsert(ctx, user)
		require.NoError(t, err)
		require.True(t, created)
		require.ElementsMatch(t, []uuid.UUID{org.DefaultGroupID, org.AdminGroupID}, user.Groups)
		userID = user.UserID
	})

	t.Run("upsert syncs name only", func(t *testing.T) {
		user := newUser("Jane Doe")
		user.Groups = nil
		created, err := users.Upsert(ctx, user)
		require.NoError(t, err)
		require.False(t, created)
		require.Equal(t, userID, user.UserID)
		require.Equal(t, "Jane Doe", user.Name)
		require.ElementsMatch(t, []uuid.UUID{org.DefaultGroupID, org.AdminGroupID}, user.Groups)
	})

	t.Run("concurrent upserts do not duplicate", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				u := newUser("Jane Doe")
				u.Email = "race@example.com"
				_, err := users.Upsert(ctx, u)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		var count int
		err := pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE email = 'race@example.com'`).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("session round trip", func(t *testing.T) {
		sessionID, err := uuid.NewV7()
		require.NoError(t, err)
		now := time.Now()

		session := &models.Session{
			SessionID:  sessionID,
			UserID:     userID,
			OrgID:      org.OrgID,
			Remember:   true,
			CreatedAt:  now,
			ExpiresAt:  now.Add(time.Hour),
			LastUsedAt: now,
			UserAgent:  "integration",
			IPAddress:  "192.0.2.1",
		}
		require.NoError(t, sessions.Create(ctx, session))

		got, err := sessions.Get(ctx, sessionID)
		require.NoError(t, err)
		require.Equal(t, "192.0.2.1", got.IPAddress)
		require.True(t, got.Remember)

		require.NoError(t, sessions.Delete(ctx, sessionID))
		_, err = sessions.Get(ctx, sessionID)
		require.ErrorIs(t, err, store.ErrSessionNotFound)
	})
}
