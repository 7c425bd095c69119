package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
	"github.com/wolfeidau/srglogin/internal/telemetry"
)

type contextKey string

const sessionContextKey contextKey = "session"

const sessionCookieName = "_session"

func (g *SRG) sessionID(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return uuid.Nil, ErrInvalidSession
	}

	sessionID, err := uuid.Parse(cookie.Value)
	if err != nil {
		return uuid.Nil, ErrInvalidSession
	}

	return sessionID, nil
}

// GetSession loads the session named by the request's session cookie.
func (g *SRG) GetSession(r *http.Request) (*models.Session, error) {
	sessionID, err := g.sessionID(r)
	if err != nil {
		return nil, err
	}

	session, err := g.stores.Sessions.Get(r.Context(), sessionID)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return nil, ErrInvalidSession
	case errors.Is(err, store.ErrSessionExpired):
		return nil, ErrExpiredSession
	case err != nil:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.IsExpired() {
		return nil, ErrExpiredSession
	}

	return session, nil
}

// RequireAuth is a middleware that protects routes by requiring a valid session.
// If the session is invalid or expired, it redirects to the specified redirectURL with an error_code query parameter.
// On success, it adds the session to the request context and calls the next handler.
func (g *SRG) RequireAuth(redirectURL string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session, err := g.GetSession(r)
			if err != nil {
				errorCode := "invalid"
				switch {
				case errors.Is(err, ErrExpiredSession):
					errorCode = "expired"
					log.Debug().Str("path", r.URL.Path).Msg("Session expired, redirecting to login")
				case errors.Is(err, ErrInvalidSession):
					log.Debug().Str("path", r.URL.Path).Msg("Invalid session, redirecting to login")
				default:
					log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to validate session")
				}

				http.Redirect(w, r, redirectURL+"?error_code="+errorCode, http.StatusFound)
				return
			}

			if err := g.stores.Sessions.UpdateLastUsed(r.Context(), session.SessionID); err != nil {
				log.Warn().Err(err).Str("session_id", session.SessionID.String()).Msg("Failed to update session last used")
			}

			log.Debug().Str("user_id", session.UserID.String()).Str("path", r.URL.Path).Msg("Session validated, allowing access")

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// SessionFromContext extracts the session from the request context.
// This should be called from handlers protected by RequireAuth middleware.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*models.Session)
	return session, ok
}

// LogoutHandler ends the current session and returns the browser to /.
func (g *SRG) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := g.sessionID(r); err == nil {
		err := g.stores.Sessions.Delete(r.Context(), sessionID)
		switch {
		case err == nil:
			telemetry.GetMetrics().SessionsRevokedTotal.Add(r.Context(), 1)
		case !errors.Is(err, store.ErrSessionNotFound):
			log.Error().Err(err).Msg("Failed to delete session")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	g.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// LogoutAllHandler handles POST /logout/all and ends every session of the current user,
// including those started from other browsers.
func (g *SRG) LogoutAllHandler(w http.ResponseWriter, r *http.Request) {
	session, err := g.GetSession(r)
	switch {
	case err == nil:
		revoked, err := g.stores.Sessions.DeleteByUser(r.Context(), session.UserID)
		if err != nil {
			log.Error().Err(err).Str("user_id", session.UserID.String()).Msg("Failed to delete user sessions")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		log.Info().Str("user_id", session.UserID.String()).Int("revoked", revoked).Msg("Logged out all sessions")
		telemetry.GetMetrics().SessionsRevokedTotal.Add(r.Context(), int64(revoked))
	case !errors.Is(err, ErrInvalidSession) && !errors.Is(err, ErrExpiredSession):
		log.Error().Err(err).Msg("Failed to load session")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	g.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (g *SRG) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !g.insecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

type sessionUser struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Groups []uuid.UUID `json:"groups"`
}

type sessionOrganization struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

// SessionResponse is the body of the current session endpoint.
type SessionResponse struct {
	User         sessionUser         `json:"user"`
	Organization sessionOrganization `json:"organization"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

// CurrentSessionHandler reports the logged in user and organization as JSON, or 401.
func (g *SRG) CurrentSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := g.GetSession(r)
	if err != nil {
		if !errors.Is(err, ErrInvalidSession) && !errors.Is(err, ErrExpiredSession) {
			log.Error().Err(err).Msg("Failed to load session")
		}
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	user, err := g.stores.Users.Get(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
			return
		}
		log.Error().Err(err).Msg("Failed to load session user")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	org, err := g.stores.Organizations.Get(ctx, session.OrgID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load session organization")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		User: sessionUser{
			ID:     user.UserID,
			Name:   user.Name,
			Email:  user.Email,
			Groups: user.Groups,
		},
		Organization: sessionOrganization{
			ID:   org.OrgID,
			Slug: org.Slug,
			Name: org.Name,
		},
		ExpiresAt: session.ExpiresAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
