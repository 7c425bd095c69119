// Package login implements single sign-on against the SRG OAuth2 identity provider.
//
// A login starts at /{org_slug}/oauth/srg, which remembers the organization in a signed
// short-lived cookie, continues at /oauth/srg which redirects the browser to the provider,
// and finishes at /oauth/srg_callback where the provider's token response (which embeds
// the user profile) is checked, the local user is provisioned and a session is started.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
	"golang.org/x/oauth2"
)

var (
	ErrInvalidResponse    = errors.New("invalid SSO response")
	ErrMissingAccessToken = errors.New("access token missing")
	ErrInvalidProfile     = errors.New("invalid user profile")
	ErrInvalidSession     = errors.New("invalid session")
	ErrExpiredSession     = errors.New("session expired")
)

const (
	defaultSessionTTL  = 30 * 24 * time.Hour
	defaultPendingTTL  = 10 * time.Minute
	minStateSecretSize = 32
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the static provider credentials and login settings.
type Config struct {
	// BaseURL of the provider's OAuth2 endpoints, e.g. https://sso.example.com/oauth2/
	BaseURL      string `validate:"required,http_url"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`

	// CallbackURL is the external URL of /oauth/srg_callback.
	CallbackURL string `validate:"required,http_url"`

	// StateSecret signs the pending login cookie.
	StateSecret []byte `validate:"min=32"`

	// SessionTTL is how long a remembered session stays valid. Default: 720h
	SessionTTL time.Duration

	// PendingTTL bounds the time between starting a login and the provider callback. Default: 10m
	PendingTTL time.Duration

	// InsecureCookies drops the Secure attribute, for local development over plain HTTP.
	InsecureCookies bool

	// HTTPClient is used for the token exchange, defaults to http.DefaultClient.
	HTTPClient *http.Client `validate:"-"`
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.PendingTTL <= 0 {
		c.PendingTTL = defaultPendingTTL
	}
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// Stores groups the persistence the login flow depends on.
type Stores struct {
	Users         store.UserStore
	Organizations store.OrganizationStore
	Sessions      store.SessionStore
}

// TenantResolver resolves the organization a login is for.
type TenantResolver interface {
	Resolve(r *http.Request) (*models.Organization, error)
	BySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// SRG drives the SRG OAuth2 login flow. It is safe for concurrent use; all of its
// configuration is fixed at construction.
type SRG struct {
	config     *oauth2.Config
	httpClient *http.Client
	stores     Stores
	tenants    TenantResolver
	appURL     *url.URL

	stateSecret     []byte
	sessionTTL      time.Duration
	pendingTTL      time.Duration
	insecureCookies bool
}

// NewSRG validates the configuration and builds the OAuth2 client once for the process lifetime.
func NewSRG(cfg Config, stores Stores, tenants TenantResolver) (*SRG, error) {
	cfg.ApplyDefaults()

	if len(cfg.StateSecret) < minStateSecretSize {
		return nil, fmt.Errorf("state secret must be at least %d bytes", minStateSecretSize)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SRG config: %w", err)
	}

	if stores.Users == nil || stores.Organizations == nil || stores.Sessions == nil {
		return nil, fmt.Errorf("all stores (users, organizations, sessions) are required")
	}

	if tenants == nil {
		return nil, fmt.Errorf("tenant resolver is required")
	}

	appURL, err := url.Parse(cfg.CallbackURL)
	if err != nil {
		return nil, fmt.Errorf("invalid callback URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &SRG{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.BaseURL + "authorize",
				TokenURL:  cfg.BaseURL + "token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient:      httpClient,
		stores:          stores,
		tenants:         tenants,
		appURL:          &url.URL{Scheme: appURL.Scheme, Host: appURL.Host},
		stateSecret:     cfg.StateSecret,
		sessionTTL:      cfg.SessionTTL,
		pendingTTL:      cfg.PendingTTL,
		insecureCookies: cfg.InsecureCookies,
	}, nil
}

// exchange trades the authorization code for the provider's token response.
// Provider errors map to ErrInvalidResponse; a response without an access token maps to
// ErrMissingAccessToken.
func (g *SRG) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		// golang.org/x/oauth2 v0.34.0 reports "oauth2: server response missing access_token" as a plain error.
		if !errors.As(err, &retrieveErr) && strings.Contains(err.Error(), "missing access_token") {
			return nil, ErrMissingAccessToken
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	if token.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}

	return token, nil
}
