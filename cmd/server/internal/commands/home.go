package commands

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/srglogin/internal/login"
	"github.com/wolfeidau/srglogin/internal/models"
	"github.com/wolfeidau/srglogin/internal/store"
	"github.com/wolfeidau/srglogin/internal/tenant"
)

var homeTemplate = template.Must(template.New("home").Parse(`<!doctype html>
<html>
<head><title>{{.Org.Name}}</title></head>
<body>
<p>Signed in to {{.Org.Name}} as {{.User.Name}} ({{.User.Email}}).</p>
<form method="post" action="/logout"><button type="submit">Log out</button></form>
</body>
</html>
`))

// homeHandler serves the organization landing page for a logged in member. Visitors
// without a session for this organization are sent to its SRG login.
func homeHandler(srg *login.SRG, users store.UserStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org, ok := tenant.FromContext(r.Context())
		if !ok {
			http.NotFound(w, r)
			return
		}

		loginPath := tenant.HomePath(org.Slug) + "oauth/srg"

		srg.RequireAuth(loginPath)(func(w http.ResponseWriter, r *http.Request) {
			session, _ := login.SessionFromContext(r.Context())
			if session.OrgID != org.OrgID {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			user, err := users.Get(r.Context(), session.UserID)
			if err != nil {
				log.Error().Err(err).Str("user_id", session.UserID.String()).Msg("Failed to load user")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if err := homeTemplate.Execute(w, struct {
				Org  *models.Organization
				User *models.User
			}{org, user}); err != nil {
				log.Warn().Err(err).Msg("Failed to render home page")
			}
		})(w, r)
	})
}
