package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Landing
	RouteHome = "/"

	// Meetings
	RouteMeetingStart  = "/meeting/start"
	RouteMeetingJoin   = "/meeting/join"
	RouteMeeting       = "/meeting/{id}"
	RouteMeetingLeave  = "/meeting/{id}/leave"
	RouteMeetingEvents = "/meeting/{id}/events"

	// Auth
	RouteSignIn   = "/auth/sign-in"
	RouteSignUp   = "/auth/sign-up"
	RouteOAuth    = "/auth/oauth"
	RouteCallback = "/auth/callback"
	RouteSignOut  = "/auth/sign-out"

	// Preferences
	RouteTheme = "/theme"
)
