package commands

import (
	"context"
	"errors"
	"fmt"

	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/srglogin/internal/logger"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/seed"
	"github.com/wolfeidau/srglogin/internal/store"
)

type OrgCmd struct {
	Create OrgCreateCmd `cmd:"" help:"Create an organization"`
	Seed   OrgSeedCmd   `cmd:"" help:"Create the organizations listed in a YAML seed file"`
}

type OrgCreateCmd struct {
	Slug  string     `arg:"" help:"organization slug (lowercase letters, digits and dashes)"`
	Name  string     `help:"display name, defaults to the slug" default:""`
	Store StoreFlags `embed:""`
}

func (c *OrgCreateCmd) Validate() error {
	return seed.ValidateSlug(c.Slug)
}

func (c *OrgCreateCmd) Run(ctx context.Context, globals *Globals) error {
	zlog.Logger = logger.Setup(globals.Debug)

	if err := requirePersistentStore(c.Store); err != nil {
		return err
	}

	st, err := c.Store.open(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	name := c.Name
	if name == "" {
		name = c.Slug
	}

	org, err := models.NewOrganization(c.Slug, name)
	if err != nil {
		return fmt.Errorf("failed to build organization: %w", err)
	}

	if err := st.organizations.Create(ctx, org); err != nil {
		if errors.Is(err, store.ErrOrganizationAlreadyExists) {
			return fmt.Errorf("organization %q already exists", c.Slug)
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	zlog.Info().
		Str("org", org.Slug).
		Str("org_id", org.OrgID.String()).
		Str("default_group_id", org.DefaultGroupID.String()).
		Str("admin_group_id", org.AdminGroupID.String()).
		Msg("Created organization")

	return nil
}

type OrgSeedCmd struct {
	File  string     `arg:"" help:"path to the seed file" type:"existingfile"`
	Store StoreFlags `embed:""`
}

func (c *OrgSeedCmd) Run(ctx context.Context, globals *Globals) error {
	zlog.Logger = logger.Setup(globals.Debug)

	if err := requirePersistentStore(c.Store); err != nil {
		return err
	}

	file, err := seed.Load(c.File)
	if err != nil {
		return err
	}

	st, err := c.Store.open(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	created, err := seed.Apply(ctx, st.organizations, file)
	if err != nil {
		return err
	}

	zlog.Info().Str("file", c.File).Int("created", created).Msg("Seeded organizations")
	return nil
}

func requirePersistentStore(flags StoreFlags) error {
	if flags.StoreType != storeTypePostgres {
		return errors.New("organization commands need a persistent store (--store-type=postgres)")
	}
	return nil
}

// ensureOrganization creates the organization named slug if it does not exist.
func ensureOrganization(ctx context.Context, orgs store.OrganizationStore, slug string) error {
	_, err := orgs.GetBySlug(ctx, slug)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrOrganizationNotFound) {
		return fmt.Errorf("failed to look up organization %s: %w", slug, err)
	}

	if err := seed.ValidateSlug(slug); err != nil {
		return fmt.Errorf("invalid organization slug %q: %w", slug, err)
	}

	org, err := models.NewOrganization(slug, slug)
	if err != nil {
		return fmt.Errorf("failed to build organization: %w", err)
	}

	if err := orgs.Create(ctx, org); err != nil && !errors.Is(err, store.ErrOrganizationAlreadyExists) {
		return fmt.Errorf("failed to create organization %s: %w", slug, err)
	}

	zlog.Info().Str("org", slug).Msg("Created default organization")
	return nil
}
