package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/srglogin"
)

// Login outcomes recorded on the login attempts counter.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalidResponse = "invalid_response"
	OutcomeMissingToken    = "missing_token"
	OutcomeInvalidProfile  = "invalid_profile"
	OutcomeNotStaff        = "not_staff"
	OutcomeUnknownOrg      = "unknown_org"
	OutcomeError           = "error"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Login flow metrics
	LoginAttemptsTotal    metric.Int64Counter
	LoginRedirectsTotal   metric.Int64Counter
	UsersProvisionedTotal metric.Int64Counter

	// Session metrics
	SessionsCreatedTotal metric.Int64Counter
	SessionsRevokedTotal metric.Int64Counter

	// Rate limiting
	RateLimitedTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// RecordLoginAttempt counts a completed provider callback by outcome.
func (m *Metrics) RecordLoginAttempt(ctx context.Context, outcome string) {
	m.LoginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Login flow metrics
	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"srglogin.login.attempts",
		metric.WithDescription("Total number of SSO callbacks processed, by outcome"),
		metric.WithUnit("{attempt}"),
	)

	m.LoginRedirectsTotal, _ = meter.Int64Counter(
		"srglogin.login.redirects.total",
		metric.WithDescription("Total number of redirects to the identity provider"),
		metric.WithUnit("{redirect}"),
	)

	m.UsersProvisionedTotal, _ = meter.Int64Counter(
		"srglogin.users.provisioned.total",
		metric.WithDescription("Total number of users created on first login"),
		metric.WithUnit("{user}"),
	)

	// Session metrics
	m.SessionsCreatedTotal, _ = meter.Int64Counter(
		"srglogin.sessions.created.total",
		metric.WithDescription("Total number of sessions established"),
		metric.WithUnit("{session}"),
	)

	m.SessionsRevokedTotal, _ = meter.Int64Counter(
		"srglogin.sessions.revoked.total",
		metric.WithDescription("Total number of sessions ended by logout"),
		metric.WithUnit("{session}"),
	)

	m.RateLimitedTotal, _ = meter.Int64Counter(
		"srglogin.http.rate_limited.total",
		metric.WithDescription("Total number of requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	)

	return m
}
