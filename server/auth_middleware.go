package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/datafab/collab-meet/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUser stores the resolved authenticated user
	ContextKeyUser ContextKey = "user"
)

// RequireUser gates meeting routes behind an authenticated session. It
// resolves the session from the auth cookies, refreshing an expired
// access token in place, and redirects to the sign-in page when no
// session can be established. The original request path is carried in
// redirect_to so sign-in can return the user to where they started.
func (s *Server) RequireUser() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			bridge, _ := s.newBridge(w, r)

			user := bridge.Resolve(r.Context())
			if user == nil {
				target := RouteSignIn + "?notice=Please+sign+in+to+continue&redirect_to=" + url.QueryEscape(r.URL.Path)
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// userFromContext returns the user injected by RequireUser.
func userFromContext(ctx context.Context) *session.User {
	user, _ := ctx.Value(ContextKeyUser).(*session.User)
	return user
}
