package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/srglogin/internal/store"
	memorystore "github.com/wolfeidau/srglogin/internal/store/memory"
	postgresstore "github.com/wolfeidau/srglogin/internal/store/postgres"
)

const (
	storeTypeMemory   = "memory"
	storeTypePostgres = "postgres"
)

type StoreFlags struct {
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"SRG_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString      string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`
	ConnectAttempts uint   `help:"attempts to reach the database on startup" default:"5" env:"SRG_POSTGRES_CONNECT_ATTEMPTS"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"SRG_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	if s.MinConns > s.MaxConns {
		return fmt.Errorf("--postgres-min-conns (%d) must not exceed --postgres-max-conns (%d)", s.MinConns, s.MaxConns)
	}
	return nil
}

type stores struct {
	organizations store.OrganizationStore
	users         store.UserStore
	sessions      store.SessionStore
	close         func()
}

func (f *StoreFlags) open(ctx context.Context) (*stores, error) {
	switch f.StoreType {
	case storeTypePostgres:
		if err := f.PostgresStore.Validate(); err != nil {
			return nil, fmt.Errorf("failed to validate postgres flags: %w", err)
		}

		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      f.PostgresStore.ConnString,
			MaxConns:        f.PostgresStore.MaxConns,
			MinConns:        f.PostgresStore.MinConns,
			MaxConnLifetime: f.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: f.PostgresStore.MaxConnIdleTime,
			ConnectAttempts: f.PostgresStore.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}

		if f.PostgresStore.AutoMigrate {
			if err := postgresstore.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		log.Info().Msg("Using PostgreSQL stores")

		return &stores{
			organizations: postgresstore.NewOrganizationStore(pool),
			users:         postgresstore.NewUserStore(pool),
			sessions:      postgresstore.NewSessionStore(pool),
			close:         pool.Close,
		}, nil

	default:
		log.Info().Msg("Using in-memory stores")

		return &stores{
			organizations: memorystore.NewOrganizationStore(),
			users:         memorystore.NewUserStore(),
			sessions:      memorystore.NewSessionStore(),
			close:         func() {},
		}, nil
	}
}
