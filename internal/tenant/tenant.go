// Package tenant resolves the organization a request is addressed to.
//
// Organizations are named by the first path segment ("/acme/...") which the router exposes
// as the "org_slug" path value. Requests outside an organization prefix fall back to the
// configured default organization.
package tenant

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
)

// PathValue is the name of the path wildcard carrying the organization slug.
const PathValue = "org_slug"

type contextKey string

const orgContextKey contextKey = "org"

// Resolver maps requests and slugs to organizations.
type Resolver struct {
	orgs        store.OrganizationStore
	defaultSlug string
}

// NewResolver creates a resolver backed by the organization store.
func NewResolver(orgs store.OrganizationStore, defaultSlug string) *Resolver {
	return &Resolver{
		orgs:        orgs,
		defaultSlug: defaultSlug,
	}
}

// DefaultSlug returns the slug used for requests without an organization prefix.
func (r *Resolver) DefaultSlug() string {
	return r.defaultSlug
}

// Resolve returns the organization for the request.
// Returns store.ErrOrganizationNotFound if the slug is unknown.
func (r *Resolver) Resolve(req *http.Request) (*models.Organization, error) {
	if org, ok := FromContext(req.Context()); ok {
		return org, nil
	}

	slug := req.PathValue(PathValue)
	if slug == "" {
		slug = r.defaultSlug
	}

	return r.BySlug(req.Context(), slug)
}

// BySlug returns the organization with the given slug.
func (r *Resolver) BySlug(ctx context.Context, slug string) (*models.Organization, error) {
	if slug == "" {
		return nil, store.ErrOrganizationNotFound
	}

	return r.orgs.GetBySlug(ctx, slug)
}

// Middleware resolves the organization once and stores it in the request context.
// Unknown organizations get a 404.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		org, err := r.Resolve(req)
		if err != nil {
			if errors.Is(err, store.ErrOrganizationNotFound) {
				http.NotFound(w, req)
				return
			}
			log.Error().Err(err).Str("path", req.URL.Path).Msg("Failed to resolve organization")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, req.WithContext(WithOrganization(req.Context(), org)))
	})
}

// WithOrganization returns a context carrying the organization.
func WithOrganization(ctx context.Context, org *models.Organization) context.Context {
	return context.WithValue(ctx, orgContextKey, org)
}

// FromContext extracts the organization stored by Middleware.
func FromContext(ctx context.Context) (*models.Organization, bool) {
	org, ok := ctx.Value(orgContextKey).(*models.Organization)
	return org, ok
}

// HomePath is the landing page of an organization, "/" when no organization is known.
func HomePath(slug string) string {
	if slug == "" {
		return "/"
	}
	return "/" + slug + "/"
}
