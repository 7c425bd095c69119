package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/rs/cors"
	zlog "github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/srglogin/internal/http"
	"github.com/wolfeidau/srglogin/internal/logger"
	"github.com/wolfeidau/srglogin/internal/login"
	"github.com/wolfeidau/srglogin/internal/seed"
	"github.com/wolfeidau/srglogin/internal/store"
	"github.com/wolfeidau/srglogin/internal/telemetry"
	"github.com/wolfeidau/srglogin/internal/tenant"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServeCmd struct {
	// Server configuration
	Listen   string `help:"HTTP server listen address" default:"0.0.0.0:443" env:"SRG_LISTEN"`
	Cert     string `help:"path to TLS cert file" default:"" env:"SRG_TLS_CERT"`
	Key      string `help:"path to TLS key file" default:"" env:"SRG_TLS_KEY"`
	Insecure bool   `help:"serve plain HTTP and drop the Secure cookie attribute (development only)" default:"false" env:"SRG_INSECURE"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"https://localhost" env:"SRG_CORS_ORIGINS"`

	// SRG OAuth configuration
	SRGURL       string        `name:"srg-url" help:"SRG OAuth2 base URL, authorize and token endpoints live below it" required:"" env:"SRG_URL"`
	ClientID     string        `help:"SRG client ID" required:"" env:"SRG_CLIENT_ID"`
	ClientSecret string        `help:"SRG client secret" required:"" env:"SRG_CLIENT_SECRET"`
	CallbackURL  string        `help:"external URL of /oauth/srg_callback" required:"" env:"SRG_CALLBACK_URL"`
	StateSecret  string        `help:"secret used to sign the pending login cookie (at least 32 bytes)" required:"" env:"SRG_STATE_SECRET"`
	SessionTTL   time.Duration `help:"remembered session TTL" default:"720h" env:"SRG_SESSION_TTL"`

	// Tenancy
	DefaultOrg string `help:"organization slug used when a login does not name one" default:"default" env:"SRG_DEFAULT_ORG"`
	SeedFile   string `help:"YAML file of organizations to create on startup" default:"" env:"SRG_SEED_FILE"`

	// Request protection
	RateLimit  float64 `help:"login requests per second allowed per client IP" default:"5" env:"SRG_RATE_LIMIT"`
	RateBurst  int     `help:"login request burst allowed per client IP" default:"20" env:"SRG_RATE_BURST"`
	TrustProxy bool    `help:"use X-Forwarded-For and X-Real-IP to identify clients" default:"false" env:"SRG_TRUST_PROXY"`

	// Operational modes
	Tracing                bool          `help:"enable tracing" default:"false" env:"SRG_TRACING"`
	TraceSampleRatio       float64       `help:"fraction of new traces recorded when tracing is enabled" default:"1" env:"SRG_TRACE_SAMPLE_RATIO"`
	MetricExportInterval   time.Duration `help:"interval between OTLP metric exports" default:"10s" env:"SRG_METRIC_EXPORT_INTERVAL"`
	SessionCleanupInterval time.Duration `help:"interval between expired session sweeps" default:"1h" env:"SRG_SESSION_CLEANUP_INTERVAL"`

	Store StoreFlags `embed:""`
}

func (c *ServeCmd) Validate() error {
	if len(c.StateSecret) < 32 {
		return errors.New("state secret must be at least 32 bytes (--state-secret or SRG_STATE_SECRET)")
	}
	if !c.Insecure && (c.Cert == "" || c.Key == "") {
		return errors.New("TLS certificate and key are required (--cert and --key), or use --insecure for development")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("--rate-limit and --rate-burst must be positive")
	}
	if c.Tracing {
		if err := c.telemetryConfig("").Validate(); err != nil {
			return fmt.Errorf("invalid tracing flags: %w", err)
		}
	}
	return nil
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, c.telemetryConfig(globals.Version))
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	st, err := c.Store.open(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	if c.SeedFile != "" {
		file, err := seed.Load(c.SeedFile)
		if err != nil {
			return err
		}
		created, err := seed.Apply(ctx, st.organizations, file)
		if err != nil {
			return fmt.Errorf("failed to seed organizations: %w", err)
		}
		log.Info().Str("file", c.SeedFile).Int("created", created).Msg("Seeded organizations")
	}

	if c.DefaultOrg != "" {
		if err := ensureOrganization(ctx, st.organizations, c.DefaultOrg); err != nil {
			return err
		}
	}

	tenants := tenant.NewResolver(st.organizations, c.DefaultOrg)

	srg, err := login.NewSRG(login.Config{
		BaseURL:         c.SRGURL,
		ClientID:        c.ClientID,
		ClientSecret:    c.ClientSecret,
		CallbackURL:     c.CallbackURL,
		StateSecret:     []byte(c.StateSecret),
		SessionTTL:      c.SessionTTL,
		InsecureCookies: c.Insecure,
	}, login.Stores{
		Users:         st.users,
		Organizations: st.organizations,
		Sessions:      st.sessions,
	}, tenants)
	if err != nil {
		return fmt.Errorf("failed to initialize SRG login: %w", err)
	}

	limiter := httpmiddleware.NewRateLimiter(c.RateLimit, c.RateBurst)
	go limiter.Run(ctx)
	go sweepSessions(ctx, st.sessions, c.SessionCleanupInterval)

	mux := newMux(srg, tenants, st, limiter.Middleware())

	// CSRF protection for HTML and form routes (not applied to API routes)
	protection := csrf.New()
	apiCORS := withCORS(c.CORSOrigins, mux)
	protected := protection.Handler(mux)

	// API routes get CORS, HTML routes get CSRF
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			apiCORS.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})

	handler = httpmiddleware.ClientIPMiddleware(c.TrustProxy)(handler)
	handler = logger.RequestLogger(log)(handler)
	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "srglogin")
	}

	server := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		if c.Insecure {
			log.Warn().Str("addr", c.Listen).Msg("Starting plain HTTP server, cookies are not marked Secure")
			errCh <- server.ListenAndServe()
			return
		}

		if _, err := os.Stat(c.Cert); err != nil {
			errCh <- fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
			return
		}
		if _, err := os.Stat(c.Key); err != nil {
			errCh <- fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
			return
		}

		log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
		errCh <- server.ListenAndServeTLS(c.Cert, c.Key)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (c *ServeCmd) telemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		ServiceName:    "srglogin-server",
		Version:        version,
		SampleRatio:    c.TraceSampleRatio,
		MetricInterval: c.MetricExportInterval,
	}
}

func newMux(srg *login.SRG, tenants *tenant.Resolver, st *stores, rateLimit func(http.Handler) http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	// SRG login flow (public, rate limited)
	mux.Handle("GET /{org_slug}/oauth/srg", rateLimit(http.HandlerFunc(srg.OrgLoginHandler)))
	mux.Handle("GET /oauth/srg", rateLimit(http.HandlerFunc(srg.LoginHandler)))
	mux.Handle("GET /oauth/srg_callback", rateLimit(http.HandlerFunc(srg.CallbackHandler)))

	mux.HandleFunc("POST /logout", srg.LogoutHandler)
	// Without a method-less /logout, GET /logout redirects to /logout/ and the organization home route.
	mux.HandleFunc("/logout", methodNotAllowed(http.MethodPost))
	mux.HandleFunc("POST /logout/all", srg.LogoutAllHandler)
	mux.HandleFunc("GET /api/session", srg.CurrentSessionHandler)

	// Organization home (requires session auth)
	mux.Handle("GET /{org_slug}/{$}", tenants.Middleware(homeHandler(srg, st.users)))

	return mux
}

func methodNotAllowed(allowed ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// isAPIRoute returns true if the path is an API route that needs CORS instead of CSRF
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// withCORS adds CORS support for browser clients of the JSON API.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler(h)
}

func sweepSessions(ctx context.Context, sessions store.SessionStore, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.DeleteExpired(ctx)
			if err != nil {
				zlog.Error().Err(err).Msg("Failed to delete expired sessions")
				continue
			}
			zlog.Debug().Int("removed", removed).Msg("Deleted expired sessions")
		}
	}
}
