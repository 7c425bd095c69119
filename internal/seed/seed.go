// Package seed loads organizations from a YAML file into the organization store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
	"gopkg.in/yaml.v3"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// reservedSlugs are top-level routes an organization slug would collide with.
var reservedSlugs = map[string]struct{}{
	"api":     {},
	"healthz": {},
	"logout":  {},
	"oauth":   {},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		slug := fl.Field().String()
		if _, reserved := reservedSlugs[slug]; reserved {
			return false
		}
		return slugPattern.MatchString(slug)
	})
	return v
}

// File is the document stored in a seed file.
type File struct {
	Organizations []Organization `yaml:"organizations" validate:"dive"`
}

// Organization describes an organization to create if its slug is missing.
type Organization struct {
	Slug string `yaml:"slug" validate:"required,max=63,slug"`
	Name string `yaml:"name" validate:"required"`
}

// ValidateSlug reports whether slug can name an organization.
func ValidateSlug(slug string) error {
	return validate.Var(slug, "required,max=63,slug")
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a seed document.
func Parse(data []byte) (*File, error) {
	file := &File{}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Organizations))
	for _, org := range file.Organizations {
		if _, dup := seen[org.Slug]; dup {
			return nil, fmt.Errorf("invalid seed file: duplicate slug %q", org.Slug)
		}
		seen[org.Slug] = struct{}{}
	}

	return file, nil
}

// Apply creates every organization in file whose slug does not exist yet. Existing
// organizations are left untouched. It returns the number created.
func Apply(ctx context.Context, orgs store.OrganizationStore, file *File) (int, error) {
	created := 0

	for _, entry := range file.Organizations {
		_, err := orgs.GetBySlug(ctx, entry.Slug)
		if err == nil {
			log.Debug().Str("org", entry.Slug).Msg("Organization exists, skipping")
			continue
		}
		if !errors.Is(err, store.ErrOrganizationNotFound) {
			return created, fmt.Errorf("failed to look up organization %s: %w", entry.Slug, err)
		}

		org, err := models.NewOrganization(entry.Slug, entry.Name)
		if err != nil {
			return created, fmt.Errorf("failed to build organization %s: %w", entry.Slug, err)
		}

		if err := orgs.Create(ctx, org); err != nil {
			if errors.Is(err, store.ErrOrganizationAlreadyExists) {
				continue
			}
			return created, fmt.Errorf("failed to create organization %s: %w", entry.Slug, err)
		}

		log.Info().Str("org", org.Slug).Str("org_id", org.OrgID.String()).Msg("Created organization")
		created++
	}

	return created, nil
}
