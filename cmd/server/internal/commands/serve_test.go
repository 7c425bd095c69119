package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/srglogin/internal/login"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store/memory"
	"github.com/wolfeidau/srglogin/internal/tenant"
)

func setupMux(t *testing.T) (*http.ServeMux, *stores) {
	t.Helper()

	st, err := (&StoreFlags{StoreType: storeTypeMemory}).open(context.Background())
	require.NoError(t, err)
	t.Cleanup(st.close)

	require.NoError(t, ensureOrganization(context.Background(), st.organizations, "acme"))

	tenants := tenant.NewResolver(st.organizations, "acme")

	srg, err := login.NewSRG(login.Config{
		BaseURL:      "https://sso.example.com/oauth2/",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://app.example.com/oauth/srg_callback",
		StateSecret:  []byte("0123456789abcdef0123456789abcdef"),
	}, login.Stores{
		Users:         st.users,
		Organizations: st.organizations,
		Sessions:      st.sessions,
	}, tenants)
	require.NoError(t, err)

	passthrough := func(next http.Handler) http.Handler { return next }

	return newMux(srg, tenants, st, passthrough), st
}

func TestNewMux_routes(t *testing.T) {
	mux, _ := setupMux(t)

	tests := []struct {
		name     string
		method   string
		target   string
		status   int
		location string
	}{
		{name: "health", method: http.MethodGet, target: "/healthz", status: http.StatusOK},
		{name: "org login", method: http.MethodGet, target: "/acme/oauth/srg", status: http.StatusFound, location: "/oauth/srg"},
		{name: "unknown org login", method: http.MethodGet, target: "/nope/oauth/srg", status: http.StatusNotFound},
		{name: "login", method: http.MethodGet, target: "/oauth/srg", status: http.StatusFound},
		{name: "callback without code", method: http.MethodGet, target: "/oauth/srg_callback", status: http.StatusOK},
		{name: "logout", method: http.MethodPost, target: "/logout", status: http.StatusFound, location: "/"},
		{name: "logout wrong method", method: http.MethodGet, target: "/logout", status: http.StatusMethodNotAllowed},
		{name: "session", method: http.MethodGet, target: "/api/session", status: http.StatusUnauthorized},
		{name: "home without session", method: http.MethodGet, target: "/acme/", status: http.StatusFound, location: "/acme/oauth/srg?error_code=invalid"},
		{name: "home of unknown org", method: http.MethodGet, target: "/nope/", status: http.StatusNotFound},
		{name: "logout all", method: http.MethodPost, target: "/logout/all", status: http.StatusFound, location: "/"},
		{name: "logout all wrong method", method: http.MethodGet, target: "/logout/all", status: http.StatusMethodNotAllowed},
		{name: "logout subtree", method: http.MethodGet, target: "/logout/", status: http.StatusNotFound},
		{name: "below org home", method: http.MethodGet, target: "/acme/settings", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusMethodNotAllowed {
				require.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
			}
			if tt.location != "" {
				require.Equal(t, tt.location, rec.Header().Get("Location"))
			}
		})
	}
}

func TestIsAPIRoute(t *testing.T) {
	require.True(t, isAPIRoute("/api/session"))
	require.False(t, isAPIRoute("/oauth/srg"))
	require.False(t, isAPIRoute("/api"))
}

func TestWithCORS(t *testing.T) {
	handler := withCORS([]string{"https://app.example.com"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Origin", "https://app.example.com")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestEnsureOrganization(t *testing.T) {
	ctx := context.Background()
	orgs := memory.NewOrganizationStore()

	require.NoError(t, ensureOrganization(ctx, orgs, "default"))

	org, err := orgs.GetBySlug(ctx, "default")
	require.NoError(t, err)

	require.NoError(t, ensureOrganization(ctx, orgs, "default"))

	again, err := orgs.GetBySlug(ctx, "default")
	require.NoError(t, err)
	require.Equal(t, org.OrgID, again.OrgID)

	require.Error(t, ensureOrganization(ctx, orgs, "Not A Slug"))
}

func TestServeCmd_Validate(t *testing.T) {
	valid := func() *ServeCmd {
		return &ServeCmd{
			StateSecret: "0123456789abcdef0123456789abcdef",
			Cert:        "cert.pem",
			Key:         "key.pem",
			RateLimit:   5,
			RateBurst:   20,
		}
	}

	require.NoError(t, valid().Validate())

	short := valid()
	short.StateSecret = "short"
	require.Error(t, short.Validate())

	noTLS := valid()
	noTLS.Cert = ""
	require.Error(t, noTLS.Validate())

	noTLS.Insecure = true
	require.NoError(t, noTLS.Validate())

	noLimit := valid()
	noLimit.RateLimit = 0
	require.Error(t, noLimit.Validate())

	tracing := valid()
	tracing.Tracing = true
	tracing.TraceSampleRatio = 0.25
	tracing.MetricExportInterval = 30 * time.Second
	require.NoError(t, tracing.Validate())

	tracing.TraceSampleRatio = 2
	require.Error(t, tracing.Validate())

	tracing.Tracing = false
	require.NoError(t, tracing.Validate())
}

func TestServeCmd_telemetryConfig(t *testing.T) {
	cmd := &ServeCmd{TraceSampleRatio: 0.1, MetricExportInterval: time.Minute}

	cfg := cmd.telemetryConfig("v1.2.3")
	require.Equal(t, "srglogin-server", cfg.ServiceName)
	require.Equal(t, "v1.2.3", cfg.Version)
	require.InDelta(t, 0.1, cfg.SampleRatio, 1e-9)
	require.Equal(t, time.Minute, cfg.MetricInterval)
}

func TestPostgresStoreFlags_Validate(t *testing.T) {
	flags := &PostgresStoreFlags{MaxConns: 20, MinConns: 5}
	require.Error(t, flags.Validate())

	flags.ConnString = "postgres://localhost/srglogin"
	require.NoError(t, flags.Validate())

	flags.MinConns = 30
	require.Error(t, flags.Validate())
}

func TestRequirePersistentStore(t *testing.T) {
	require.Error(t, requirePersistentStore(StoreFlags{StoreType: storeTypeMemory}))
	require.NoError(t, requirePersistentStore(StoreFlags{StoreType: storeTypePostgres}))
}

func TestHomeHandler_otherOrganizationSession(t *testing.T) {
	mux, st := setupMux(t)
	ctx := context.Background()

	other, err := models.NewOrganization("other", "Other")
	require.NoError(t, err)
	require.NoError(t, st.organizations.Create(ctx, other))

	acme, err := st.organizations.GetBySlug(ctx, "acme")
	require.NoError(t, err)

	srg, err := login.NewSRG(login.Config{
		BaseURL:      "https://sso.example.com/oauth2/",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://app.example.com/oauth/srg_callback",
		StateSecret:  []byte("0123456789abcdef0123456789abcdef"),
	}, login.Stores{
		Users:         st.users,
		Organizations: st.organizations,
		Sessions:      st.sessions,
	}, tenant.NewResolver(st.organizations, "acme"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_, err = srg.LoginUser(rec, httptest.NewRequest(http.MethodGet, "/oauth/srg_callback", nil), acme, "Alice", "alice@example.com")
	require.NoError(t, err)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "_session" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)

	t.Run("own organization", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/acme/", nil)
		req.AddCookie(sessionCookie)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Signed in to acme as Alice")
	})

	t.Run("other organization", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/other/", nil)
		req.AddCookie(sessionCookie)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/other/oauth/srg", rec.Header().Get("Location"))
	})
}
