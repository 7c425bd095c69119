package login

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
	"github.com/wolfeidau/srglogin/internal/telemetry"
	"github.com/wolfeidau/srglogin/internal/tenant"
	"golang.org/x/oauth2"
)

// Messages returned to the browser when the callback fails.
const (
	MessageInvalidResponse = "Invalid SSO response. Please retry."
	MessageValidation      = "Validation error. Please retry."
	MessageNotStaff        = "User must be staff to use this system"
)

// LoginPath is where OrgLoginHandler forwards to after recording the organization.
const LoginPath = "/oauth/srg"

// OrgLoginHandler handles GET /{org_slug}/oauth/srg. It remembers the organization for the
// callback and continues at LoginPath, keeping any next parameter.
func (g *SRG) OrgLoginHandler(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue(tenant.PathValue)

	org, err := g.tenants.BySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			log.Debug().Str("org", slug).Msg("Login requested for unknown organization")
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("org", slug).Msg("Failed to look up organization")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := g.savePending(w, PendingLogin{OrgSlug: org.Slug}); err != nil {
		log.Error().Err(err).Msg("Failed to save pending login")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	target := LoginPath
	if next := r.URL.Query().Get("next"); next != "" {
		target += "?" + url.Values{"next": {next}}.Encode()
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// LoginHandler handles GET /oauth/srg and sends the browser to the provider. The post
// login destination travels in the OAuth2 state parameter.
func (g *SRG) LoginHandler(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if next == "" {
		slug := ""
		if pending, err := g.readPending(r); err == nil {
			slug = pending.OrgSlug
		}
		next = tenant.HomePath(slug)
	}

	log.Debug().Str("next", next).Msg("Redirecting to SRG")
	telemetry.GetMetrics().LoginRedirectsTotal.Add(r.Context(), 1)

	http.Redirect(w, r, g.config.AuthCodeURL(next), http.StatusFound)
}

// CallbackHandler handles GET /oauth/srg_callback.
func (g *SRG) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	metrics := telemetry.GetMetrics()

	token, err := g.authorizedResponse(r)
	switch {
	case errors.Is(err, ErrMissingAccessToken):
		log.Warn().Msg("Access token missing in SSO response")
		metrics.RecordLoginAttempt(ctx, telemetry.OutcomeMissingToken)
		writeError(w, MessageValidation)
		return
	case err != nil:
		log.Warn().Err(err).Msg("Invalid SSO response")
		metrics.RecordLoginAttempt(ctx, telemetry.OutcomeInvalidResponse)
		writeError(w, MessageInvalidResponse)
		return
	}

	profile, err := profileFromToken(token)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read user profile from SSO response")
		metrics.RecordLoginAttempt(ctx, telemetry.OutcomeInvalidProfile)
		writeError(w, MessageValidation)
		return
	}

	if !profile.IsStaff {
		log.Warn().Str("email", profile.Email).Msg("Rejected login for non staff user")
		metrics.RecordLoginAttempt(ctx, telemetry.OutcomeNotStaff)
		writeError(w, MessageNotStaff)
		return
	}

	if err := profile.Validate(); err != nil {
		log.Warn().Err(err).Str("email", profile.Email).Msg("Invalid user profile in SSO response")
		metrics.RecordLoginAttempt(ctx, telemetry.OutcomeInvalidProfile)
		writeError(w, MessageValidation)
		return
	}

	org, err := g.callbackOrganization(w, r)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			log.Warn().Err(err).Msg("SSO callback for unknown organization")
			metrics.RecordLoginAttempt(ctx, telemetry.OutcomeUnknownOrg)
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Msg("Failed to resolve organization")
		metrics.RecordLoginAttempt(ctx, telemetry.OutcomeError)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user, err := g.LoginUser(w, r, org, profile.Username, profile.Email)
	if err != nil {
		log.Error().Err(err).Str("org", org.Slug).Str("email", profile.Email).Msg("Failed to log in user")
		metrics.RecordLoginAttempt(ctx, telemetry.OutcomeError)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	next := r.URL.Query().Get("state")
	if !g.isAppRedirect(next) {
		next = tenant.HomePath(org.Slug)
	}

	log.Info().
		Str("org", org.Slug).
		Str("user_id", user.UserID.String()).
		Str("next", next).
		Msg("User logged in via SRG")
	metrics.RecordLoginAttempt(ctx, telemetry.OutcomeSuccess)

	http.Redirect(w, r, next, http.StatusFound)
}

func (g *SRG) authorizedResponse(r *http.Request) (*oauth2.Token, error) {
	query := r.URL.Query()

	if code := query.Get("error"); code != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidResponse, code, query.Get("error_description"))
	}

	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrInvalidResponse)
	}

	return g.exchange(r.Context(), code)
}

// callbackOrganization prefers the organization recorded when the login started, falling
// back to the organization for the current request.
func (g *SRG) callbackOrganization(w http.ResponseWriter, r *http.Request) (*models.Organization, error) {
	pending, err := g.consumePending(w, r)
	if err == nil {
		return g.tenants.BySlug(r.Context(), pending.OrgSlug)
	}

	if !errors.Is(err, errNoPendingLogin) {
		log.Debug().Err(err).Msg("Ignoring pending login")
	}

	return g.tenants.Resolve(r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, message string) {
	body, err := json.Marshal(errorResponse{Error: message})
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// isAppRedirect reports whether target is a local path or an absolute URL on the host
// serving the callback.
func (g *SRG) isAppRedirect(target string) bool {
	if isLocalRedirect(target) {
		return true
	}

	u, err := url.Parse(target)
	if err != nil || u.User != nil {
		return false
	}

	return strings.EqualFold(u.Scheme, g.appURL.Scheme) && strings.EqualFold(u.Host, g.appURL.Host)
}

// isLocalRedirect reports whether target is a path on this site.
func isLocalRedirect(target string) bool {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return false
	}

	u, err := url.Parse(target)
	if err != nil {
		return false
	}

	return u.Scheme == "" && u.Host == ""
}
