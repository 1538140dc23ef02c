package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/datafab/collab-meet/internal/config"
	"github.com/datafab/collab-meet/server"
	"github.com/datafab/collab-meet/session"
	"github.com/datafab/collab-meet/session/providerfakes"
)

const (
	sessionCookieName  = "sb-local-auth-token"
	verifierCookieName = "sb-local-auth-token-code-verifier"
)

var roomPathPattern = regexp.MustCompile(`^/meeting/[a-z0-9]{5}-[a-z0-9]{5}$`)

type serverFixture struct {
	provider *providerfakes.FakeProvider
	server   *server.Server
	user     session.User
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()

	t.Setenv("ENV", "TEST")
	t.Setenv("MAIN_DOMAIN", "")

	f := &serverFixture{provider: providerfakes.NewFakeProvider()}
	f.user = f.provider.AddUser("user-1", "jane@example.com", "pa55word", "Jane")

	srv, err := server.New(config.New(), f.provider)
	require.NoError(t, err)
	f.server = srv
	return f
}

// authCookie issues a fresh provider session and encodes it the way the
// cookie store persists sessions.
func (f *serverFixture) authCookie(t *testing.T) *http.Cookie {
	t.Helper()

	sess, err := f.provider.SignInWithPassword(context.Background(), "jane@example.com", "pa55word")
	require.NoError(t, err)

	raw, err := json.Marshal(sess)
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookieName, Value: url.QueryEscape(string(raw))}
}

func (f *serverFixture) do(t *testing.T, method, target string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) doForm(t *testing.T, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, method, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", cookies...)
}

func (f *serverFixture) postEvent(t *testing.T, roomID, event string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"event":"` + event + `","payload":{}}`
	return f.do(t, http.MethodPost, "/meeting/"+roomID+"/events", strings.NewReader(body), "application/json", cookies...)
}

// openMeeting renders the meeting page, which opens the view.
func (f *serverFixture) openMeeting(t *testing.T, roomID string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/meeting/"+roomID, nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func deletionCookies(rec *httptest.ResponseRecorder, name string) []*http.Cookie {
	var deletions []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && !c.Expires.IsZero() && c.Expires.Before(time.Now()) {
			deletions = append(deletions, c)
		}
	}
	return deletions
}

func TestAuthGate(t *testing.T) {
	t.Run("unauthenticated meeting start redirects to sign-in", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/meeting/start", url.Values{})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		location := rec.Header().Get("Location")
		require.True(t, strings.HasPrefix(location, "/auth/sign-in"))
		require.Contains(t, location, "redirect_to="+url.QueryEscape("/meeting/start"))
	})

	t.Run("authenticated meeting start mints a room and redirects into it", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/meeting/start", url.Values{}, f.authCookie(t))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Regexp(t, roomPathPattern, rec.Header().Get("Location"))
	})

	t.Run("unauthenticated meeting page redirects to sign-in", func(t *testing.T) {
		f := setupServer(t)

		rec := f.do(t, http.MethodGet, "/meeting/k3f9a-x07qp", nil, "")

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/auth/sign-in"))
	})

	t.Run("expired session refreshes in place and passes the gate", func(t *testing.T) {
		f := setupServer(t)

		sess, err := f.provider.SignInWithPassword(context.Background(), "jane@example.com", "pa55word")
		require.NoError(t, err)
		sess.ExpiresAt = time.Now().Add(-time.Hour)
		raw, err := json.Marshal(sess)
		require.NoError(t, err)
		stale := &http.Cookie{Name: sessionCookieName, Value: url.QueryEscape(string(raw))}

		rec := f.doForm(t, http.MethodPost, "/meeting/start", url.Values{}, stale)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Regexp(t, roomPathPattern, rec.Header().Get("Location"))
		require.NotNil(t, responseCookie(rec, sessionCookieName), "refreshed session should be re-persisted")
	})
}

func TestMeetingJoin(t *testing.T) {
	t.Run("valid code redirects into the room", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/meeting/join", url.Values{"room": {" k3f9a-x07qp "}}, f.authCookie(t))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/meeting/k3f9a-x07qp", rec.Header().Get("Location"))
	})

	t.Run("blank code bounces back with a notice", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/meeting/join", url.Values{"room": {"   "}}, f.authCookie(t))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "notice=")
	})
}

func TestMeetingPage(t *testing.T) {
	t.Run("renders the widget bootstrap for the room", func(t *testing.T) {
		f := setupServer(t)

		rec := f.openMeeting(t, "k3f9a-x07qp", f.authCookie(t))

		body := rec.Body.String()
		require.Contains(t, body, `data-room="k3f9a-x07qp"`)
		require.Contains(t, body, "external_api.js")
		require.Contains(t, body, "Jane")
	})

	t.Run("rejoining the same room reuses the open view", func(t *testing.T) {
		f := setupServer(t)
		cookie := f.authCookie(t)

		f.openMeeting(t, "k3f9a-x07qp", cookie)
		f.openMeeting(t, "k3f9a-x07qp", cookie)

		rec := f.postEvent(t, "k3f9a-x07qp", "videoConferenceJoined", cookie)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestMeetingEvents(t *testing.T) {
	t.Run("known events are delivered", func(t *testing.T) {
		f := setupServer(t)
		cookie := f.authCookie(t)
		f.openMeeting(t, "k3f9a-x07qp", cookie)

		for _, event := range []string{"videoConferenceJoined", "participantKnocking", "lobby.participant-access-granted"} {
			rec := f.postEvent(t, "k3f9a-x07qp", event, cookie)
			require.Equal(t, http.StatusNoContent, rec.Code, event)
		}
	})

	t.Run("unknown event names are ignored", func(t *testing.T) {
		f := setupServer(t)
		cookie := f.authCookie(t)
		f.openMeeting(t, "k3f9a-x07qp", cookie)

		rec := f.postEvent(t, "k3f9a-x07qp", "somethingElse", cookie)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("events for a room with no open view are a 404", func(t *testing.T) {
		f := setupServer(t)

		rec := f.postEvent(t, "nosuc-room1", "videoConferenceJoined", f.authCookie(t))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("readyToClose tears the view down", func(t *testing.T) {
		f := setupServer(t)
		cookie := f.authCookie(t)
		f.openMeeting(t, "k3f9a-x07qp", cookie)

		rec := f.postEvent(t, "k3f9a-x07qp", "readyToClose", cookie)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.postEvent(t, "k3f9a-x07qp", "videoConferenceJoined", cookie)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		f := setupServer(t)
		cookie := f.authCookie(t)
		f.openMeeting(t, "k3f9a-x07qp", cookie)

		rec := f.do(t, http.MethodPost, "/meeting/k3f9a-x07qp/events", strings.NewReader("{"), "application/json", cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMeetingLeave(t *testing.T) {
	f := setupServer(t)
	cookie := f.authCookie(t)
	f.openMeeting(t, "k3f9a-x07qp", cookie)

	rec := f.doForm(t, http.MethodPost, "/meeting/k3f9a-x07qp/leave", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	rec = f.postEvent(t, "k3f9a-x07qp", "videoConferenceJoined", cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignIn(t *testing.T) {
	t.Run("page render purges stale auth cookies", func(t *testing.T) {
		f := setupServer(t)

		rec := f.do(t, http.MethodGet, "/auth/sign-in", nil, "", f.authCookie(t))

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, deletionCookies(rec, sessionCookieName))
	})

	t.Run("valid credentials persist a session", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/auth/sign-in", url.Values{
			"email":    {"jane@example.com"},
			"password": {"pa55word"},
		})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Header().Get("Location"))

		cookie := responseCookie(rec, sessionCookieName)
		require.NotNil(t, cookie)
		require.Equal(t, "/", cookie.Path)

		var persisted session.Session
		raw, err := url.QueryUnescape(cookie.Value)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
		require.Equal(t, "jane@example.com", persisted.User.Email)
	})

	t.Run("rejected credentials bounce back with an error", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/auth/sign-in", url.Values{
			"email":    {"jane@example.com"},
			"password": {"wrong"},
		})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "error=")
		require.Nil(t, responseCookie(rec, sessionCookieName))
	})

	t.Run("redirect_to returns the user to the gated page", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/auth/sign-in", url.Values{
			"email":       {"jane@example.com"},
			"password":    {"pa55word"},
			"redirect_to": {"/meeting/k3f9a-x07qp"},
		})

		require.Equal(t, "/meeting/k3f9a-x07qp", rec.Header().Get("Location"))
	})

	t.Run("offsite redirect_to is discarded", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/auth/sign-in", url.Values{
			"email":       {"jane@example.com"},
			"password":    {"pa55word"},
			"redirect_to": {"https://evil.example.com/"},
		})

		require.Equal(t, "/", rec.Header().Get("Location"))
	})
}

func TestSignUp(t *testing.T) {
	t.Run("new account redirects to sign-in", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/auth/sign-up", url.Values{
			"name":     {"New User"},
			"email":    {"new@example.com"},
			"password": {"secret123"},
		})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/auth/sign-in"))
		require.Nil(t, responseCookie(rec, sessionCookieName), "sign-up must not create a session")
	})

	t.Run("duplicate account bounces back with an error", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/auth/sign-up", url.Values{
			"name":     {"Jane"},
			"email":    {"jane@example.com"},
			"password": {"pa55word"},
		})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "error=")
	})
}

func TestOAuthFlow(t *testing.T) {
	parkedVerifier := func(t *testing.T, rec *httptest.ResponseRecorder) (string, *http.Cookie) {
		t.Helper()
		cookie := responseCookie(rec, verifierCookieName)
		require.NotNil(t, cookie)
		raw, err := url.QueryUnescape(cookie.Value)
		require.NoError(t, err)
		var verifier string
		require.NoError(t, json.Unmarshal([]byte(raw), &verifier))
		return verifier, cookie
	}

	t.Run("start parks the verifier and redirects to the provider", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/auth/oauth", url.Values{"provider": {"github"}})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "provider=github")

		verifier, _ := parkedVerifier(t, rec)
		require.NotEmpty(t, verifier)
	})

	t.Run("callback exchanges the code and persists the session", func(t *testing.T) {
		f := setupServer(t)

		start := f.doForm(t, http.MethodPost, "/auth/oauth", url.Values{"provider": {"github"}})
		verifier, verifierCookie := parkedVerifier(t, start)
		f.provider.AddCode("code-1", "jane@example.com", verifier)

		rec := f.do(t, http.MethodGet, "/auth/callback?code=code-1", nil, "",
			&http.Cookie{Name: verifierCookieName, Value: verifierCookie.Value})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "http://localhost:3000", rec.Header().Get("Location"))
		require.NotNil(t, responseCookie(rec, sessionCookieName))
		require.NotEmpty(t, deletionCookies(rec, verifierCookieName), "verifier is single use")
	})

	t.Run("failed exchange still redirects without a session", func(t *testing.T) {
		f := setupServer(t)
		f.provider.FailExchange = true

		rec := f.do(t, http.MethodGet, "/auth/callback?code=code-x", nil, "")

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "http://localhost:3000", rec.Header().Get("Location"))
		require.Empty(t, deletionCookies(rec, sessionCookieName))
		require.Nil(t, responseCookie(rec, sessionCookieName))
	})

	t.Run("callback without a code still redirects", func(t *testing.T) {
		f := setupServer(t)

		rec := f.do(t, http.MethodGet, "/auth/callback?error=access_denied", nil, "")

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "http://localhost:3000", rec.Header().Get("Location"))
	})
}

func TestSignOut(t *testing.T) {
	t.Run("purges the session cookie and redirects home", func(t *testing.T) {
		f := setupServer(t)

		rec := f.do(t, http.MethodGet, "/auth/sign-out", nil, "", f.authCookie(t))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Header().Get("Location"))
		require.NotEmpty(t, deletionCookies(rec, sessionCookieName))
	})

	t.Run("provider failure still purges locally", func(t *testing.T) {
		f := setupServer(t)
		f.provider.FailSignOut = true

		rec := f.do(t, http.MethodGet, "/auth/sign-out", nil, "", f.authCookie(t))

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.NotEmpty(t, deletionCookies(rec, sessionCookieName))
	})
}

func TestTheme(t *testing.T) {
	t.Run("stores the preference", func(t *testing.T) {
		f := setupServer(t)

		rec := f.doForm(t, http.MethodPost, "/theme", url.Values{"theme": {"light"}})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		cookie := responseCookie(rec, "collab-theme")
		require.NotNil(t, cookie)
		require.Equal(t, "light", cookie.Value)
	})

	t.Run("home page reflects the stored theme", func(t *testing.T) {
		f := setupServer(t)

		rec := f.do(t, http.MethodGet, "/", nil, "", &http.Cookie{Name: "collab-theme", Value: "light"})

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `data-theme="light"`)
	})
}

func TestHomePage(t *testing.T) {
	t.Run("anonymous visitor sees the sign-in link", func(t *testing.T) {
		f := setupServer(t)

		rec := f.do(t, http.MethodGet, "/", nil, "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "/auth/sign-in")
	})

	t.Run("signed-in visitor sees their name", func(t *testing.T) {
		f := setupServer(t)

		rec := f.do(t, http.MethodGet, "/", nil, "", f.authCookie(t))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Jane")
	})

	t.Run("www host redirects to the bare host", func(t *testing.T) {
		f := setupServer(t)

		req := httptest.NewRequest(http.MethodGet, "http://www.example.com/", nil)
		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusMovedPermanently, rec.Code)
		require.Equal(t, "https://example.com/", rec.Header().Get("Location"))
	})
}
