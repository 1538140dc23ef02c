package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/datafab/collab-meet/internal/errors"
	"github.com/datafab/collab-meet/cookies"
	"github.com/datafab/collab-meet/room"
	"github.com/datafab/collab-meet/session"
	"github.com/datafab/collab-meet/widget"
)

// IndexHandler renders the landing page with start/join controls.
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		panic("Failed to parse index template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		bridge, store := s.newBridge(w, r)
		user := bridge.Resolve(r.Context())

		theme := store.Theme()
		data := map[string]interface{}{
			"AppName":   s.config.GetAppName(),
			"User":      user,
			"Theme":     theme,
			"NextTheme": nextTheme(theme),
			"Notice":    r.URL.Query().Get("notice"),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	}
}

// MeetingStartHandler mints a fresh room id and redirects into it.
func (s *Server) MeetingStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := room.NewID()
		http.Redirect(w, r, "/meeting/"+roomID, http.StatusSeeOther)
	}
}

// MeetingJoinHandler validates a submitted meeting code and redirects
// into the room.
func (s *Server) MeetingJoinHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, RouteHome+"?notice=Invalid+request", http.StatusSeeOther)
			return
		}
		roomID := strings.TrimSpace(r.FormValue("room"))
		if !room.Validate(roomID) {
			http.Redirect(w, r, RouteHome+"?notice=Enter+a+meeting+code", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/meeting/"+url.PathEscape(roomID), http.StatusSeeOther)
	}
}

// MeetingPageHandler opens (or rejoins) the meeting view and renders
// the page carrying the widget bootstrap.
func (s *Server) MeetingPageHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("meeting.html")
	if err != nil {
		panic("Failed to parse meeting template: " + err.Error())
	}
	errTmpl, err := ParseTemplate("error.html")
	if err != nil {
		panic("Failed to parse error template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		roomID := r.PathValue("id")
		if !room.Validate(roomID) {
			http.Redirect(w, r, RouteHome+"?notice=Unknown+meeting", http.StatusSeeOther)
			return
		}

		theme := s.newStore(w, r).Theme()
		_, err := s.views.Open(roomID, widgetIdentity(user))
		if err != nil {
			log.Error().Err(err).Str("room", roomID).Msg("failed to open meeting view")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_ = errTmpl.Execute(w, map[string]interface{}{
				"AppName": s.config.GetAppName(),
				"Theme":   theme,
				"Error":   "The meeting service is unavailable. Please try again shortly.",
			})
			return
		}

		data := map[string]interface{}{
			"AppName":    s.config.GetAppName(),
			"Theme":      theme,
			"RoomID":     roomID,
			"User":       user,
			"ScriptURL":  s.config.GetMeetScriptURL(),
			"MeetDomain": s.config.GetMeetDomain(),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	}
}

// MeetingLeaveHandler tears the meeting view down and returns home.
func (s *Server) MeetingLeaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.views.Close(r.PathValue("id"))
		http.Redirect(w, r, RouteHome, http.StatusSeeOther)
	}
}

// widgetEventRequest is the body the meeting page posts when the
// embedded widget reports an event.
type widgetEventRequest struct {
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

// MeetingEventsHandler receives widget events from the rendered page
// and delivers them into the view's controller.
func (s *Server) MeetingEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req widgetEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}

		err := s.views.Deliver(r.PathValue("id"), req.Event, req.Payload)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case apperrors.Is(err, apperrors.ErrNotFound):
			http.Error(w, "404 - Meeting Not Found", http.StatusNotFound)
		case apperrors.Is(err, apperrors.ErrWidgetUnavailable):
			http.Error(w, "409 - Widget Not Active", http.StatusConflict)
		default:
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// ThemeHandler stores the light/dark preference and bounces back.
func (s *Server) ThemeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			s.newStore(w, r).SetTheme(r.FormValue("theme"))
		}
		target := r.Referer()
		if target == "" {
			target = RouteHome
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func nextTheme(theme string) string {
	if theme == cookies.ThemeDark {
		return cookies.ThemeLight
	}
	return cookies.ThemeDark
}

func widgetIdentity(user *session.User) widget.UserInfo {
	return widget.UserInfo{
		DisplayName: user.DisplayName(),
		Email:       user.Email,
	}
}
