package login

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/srglogin/internal/http"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/telemetry"
)

// LoginUser finds or creates the user with email in org, syncs the display name and starts
// a remembered session for them. New users are given the organization's member groups,
// which includes its admin group.
func (g *SRG) LoginUser(w http.ResponseWriter, r *http.Request, org *models.Organization, name, email string) (*models.User, error) {
	user, err := g.provisionUser(r.Context(), org, name, email)
	if err != nil {
		return nil, err
	}

	if err := g.startSession(w, r, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (g *SRG) provisionUser(ctx context.Context, org *models.Organization, name, email string) (*models.User, error) {
	userID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	now := time.Now()
	user := &models.User{
		UserID:    userID,
		OrgID:     org.OrgID,
		Name:      name,
		Email:     email,
		Groups:    org.MemberGroups(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := g.stores.Users.Upsert(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if created {
		log.Info().Str("org", org.Slug).Str("email", email).Str("user_id", user.UserID.String()).Msg("Created user")
		telemetry.GetMetrics().UsersProvisionedTotal.Add(ctx, 1)
	} else {
		log.Debug().Str("org", org.Slug).Str("email", email).Msg("Found existing user")
	}

	return user, nil
}

func (g *SRG) startSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	ctx := r.Context()

	if previous, err := g.sessionID(r); err == nil {
		if err := g.stores.Sessions.Delete(ctx, previous); err != nil {
			log.Debug().Err(err).Msg("Previous session not removed")
		}
	}

	sessionID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		SessionID:  sessionID,
		UserID:     user.UserID,
		OrgID:      user.OrgID,
		Remember:   true,
		CreatedAt:  now,
		ExpiresAt:  now.Add(g.sessionTTL),
		LastUsedAt: now,
		UserAgent:  r.UserAgent(),
		IPAddress:  clientIP(r),
	}

	if err := g.stores.Sessions.Create(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	telemetry.GetMetrics().SessionsCreatedTotal.Add(ctx, 1)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   !g.insecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(g.sessionTTL.Seconds()),
	})

	return nil
}

// clientIP returns the caller's address if it parses as an IP, otherwise an empty string.
func clientIP(r *http.Request) string {
	ip := httpmiddleware.ClientIPFromContext(r.Context())
	if ip == "" {
		ip = httpmiddleware.RemoteIP(r)
	}

	ip = strings.Trim(strings.TrimSpace(ip), "[]")
	if net.ParseIP(ip) == nil {
		return ""
	}

	return ip
}
