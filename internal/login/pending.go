package login

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	pendingCookieName = "srg_pending"
	pendingIssuer     = "srglogin"
)

var errNoPendingLogin = errors.New("no pending login")

// PendingLogin is the state carried from login initiation to the provider callback.
type PendingLogin struct {
	OrgSlug string
}

type pendingClaims struct {
	OrgSlug string `json:"org_slug"`
	jwt.RegisteredClaims
}

func (g *SRG) savePending(w http.ResponseWriter, pending PendingLogin) error {
	now := time.Now()

	claims := pendingClaims{
		OrgSlug: pending.OrgSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    pendingIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.pendingTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.stateSecret)
	if err != nil {
		return fmt.Errorf("failed to sign pending login: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     pendingCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(g.pendingTTL.Seconds()),
		HttpOnly: true,
		Secure:   !g.insecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (g *SRG) readPending(r *http.Request) (*PendingLogin, error) {
	cookie, err := r.Cookie(pendingCookieName)
	if err != nil {
		return nil, errNoPendingLogin
	}

	claims := &pendingClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (any, error) {
		return g.stateSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(pendingIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid pending login: %w", err)
	}

	return &PendingLogin{OrgSlug: claims.OrgSlug}, nil
}

// consumePending reads the pending login and always clears its cookie.
func (g *SRG) consumePending(w http.ResponseWriter, r *http.Request) (*PendingLogin, error) {
	pending, err := g.readPending(r)
	if !errors.Is(err, errNoPendingLogin) {
		g.clearPending(w)
	}
	return pending, err
}

func (g *SRG) clearPending(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     pendingCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !g.insecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
