package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/datafab/collab-meet/session"
)

// SignInPageHandler renders the sign-in page. Stale auth cookies are
// purged on render: a leftover session cookie under the wrong domain
// variant otherwise shadows the fresh one written after sign-in.
func (s *Server) SignInPageHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("sign_in.html")
	if err != nil {
		panic("Failed to parse sign in template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		bridge, store := s.newBridge(w, r)
		store.RemoveItem(bridge.SessionCookieName())
		store.RemoveItem(bridge.VerifierCookieName())

		data := map[string]interface{}{
			"AppName":    s.config.GetAppName(),
			"Theme":      store.Theme(),
			"Error":      r.URL.Query().Get("error"),
			"Notice":     r.URL.Query().Get("notice"),
			"RedirectTo": safeRedirect(r.URL.Query().Get("redirect_to")),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	}
}

// SignInSubmissionHandler signs in with email credentials and persists
// the session cookie before redirecting onwards.
func (s *Server) SignInSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, RouteSignIn+"?error=Invalid+request", http.StatusSeeOther)
			return
		}

		bridge, _ := s.newBridge(w, r)
		_, err := bridge.SignInWithPassword(r.Context(), r.FormValue("email"), r.FormValue("password"))
		if err != nil {
			log.Warn().Err(err).Msg("password sign-in rejected")
			http.Redirect(w, r, RouteSignIn+"?error=Invalid+email+or+password", http.StatusSeeOther)
			return
		}

		http.Redirect(w, r, safeRedirect(r.FormValue("redirect_to")), http.StatusSeeOther)
	}
}

// SignUpPageHandler renders the registration page.
func (s *Server) SignUpPageHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("sign_up.html")
	if err != nil {
		panic("Failed to parse sign up template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{
			"AppName": s.config.GetAppName(),
			"Theme":   s.newStore(w, r).Theme(),
			"Error":   r.URL.Query().Get("error"),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	}
}

// SignUpSubmissionHandler registers a new account. No session is
// created; the provider may require email verification first.
func (s *Server) SignUpSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, RouteSignUp+"?error=Invalid+request", http.StatusSeeOther)
			return
		}

		bridge, _ := s.newBridge(w, r)
		metadata := session.Metadata{Name: r.FormValue("name")}
		if err := bridge.SignUp(r.Context(), r.FormValue("email"), r.FormValue("password"), metadata); err != nil {
			log.Warn().Err(err).Msg("sign-up rejected")
			http.Redirect(w, r, RouteSignUp+"?error=Could+not+create+account", http.StatusSeeOther)
			return
		}

		http.Redirect(w, r, RouteSignIn+"?notice=Account+created,+please+sign+in", http.StatusSeeOther)
	}
}

// OAuthStartHandler begins the OAuth flow: parks the PKCE verifier in
// its cookie and redirects to the provider's consent page.
func (s *Server) OAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, RouteSignIn+"?error=Invalid+request", http.StatusSeeOther)
			return
		}
		provider := r.FormValue("provider")
		if provider == "" {
			http.Redirect(w, r, RouteSignIn+"?error=Unknown+provider", http.StatusSeeOther)
			return
		}

		callbackURL := getScheme(r) + "://" + r.Host + RouteCallback
		bridge, _ := s.newBridge(w, r)
		authURL, err := bridge.BeginOAuth(r.Context(), provider, callbackURL)
		if err != nil {
			log.Error().Err(err).Str("provider", provider).Msg("oauth start failed")
			http.Redirect(w, r, RouteSignIn+"?error=Sign-in+is+unavailable", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, authURL, http.StatusSeeOther)
	}
}

// AuthCallbackHandler completes the OAuth flow. The exchange is
// best-effort: failure is logged and the user still lands on the app,
// where the auth gate re-prompts sign-in. In development the redirect
// target is the configured app URL, never the provider host.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")

		if code != "" {
			bridge, _ := s.newBridge(w, r)
			if err := bridge.ExchangeCode(r.Context(), code); err != nil {
				log.Error().Err(err).Msg("code exchange failed")
			}
		} else {
			log.Warn().Str("error", r.URL.Query().Get("error")).Msg("oauth callback arrived without a code")
		}

		http.Redirect(w, r, s.postAuthTarget(), http.StatusSeeOther)
	}
}

// SignOutHandler revokes the session and purges every cookie variant.
func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bridge, _ := s.newBridge(w, r)
		if err := bridge.SignOut(r.Context()); err != nil {
			log.Warn().Err(err).Msg("provider sign-out failed")
		}
		http.Redirect(w, r, RouteHome, http.StatusSeeOther)
	}
}

// postAuthTarget is where the callback lands the user: the configured
// app URL. In development that defaults to the localhost app origin,
// because the provider redirects to its own host and a relative path
// would strand the user there.
func (s *Server) postAuthTarget() string {
	if target := s.config.GetAppURL(); target != "" {
		return target
	}
	return RouteHome
}

// safeRedirect confines post-auth redirects to local paths so the
// redirect_to parameter cannot be pointed at another origin.
func safeRedirect(target string) string {
	if target == "" {
		return RouteHome
	}
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host != "" || parsed.Scheme != "" || !strings.HasPrefix(parsed.Path, "/") {
		return RouteHome
	}
	return parsed.Path
}
