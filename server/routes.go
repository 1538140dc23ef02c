package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHome, ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// MEETINGS (gated behind an authenticated session)
	s.RegisterRouteHandler("POST "+RouteMeetingStart, ChainMiddleware(s.MeetingStartHandler(), s.HTMLMiddleWare(s.RequireUser())...))
	s.RegisterRouteHandler("POST "+RouteMeetingJoin, ChainMiddleware(s.MeetingJoinHandler(), s.HTMLMiddleWare(s.RequireUser())...))
	s.RegisterRouteHandler("GET "+RouteMeeting, ChainMiddleware(s.MeetingPageHandler(), s.HTMLMiddleWare(s.RequireUser())...))
	s.RegisterRouteHandler("POST "+RouteMeetingLeave, ChainMiddleware(s.MeetingLeaveHandler(), s.HTMLMiddleWare(s.RequireUser())...))
	s.RegisterRouteHandler("POST "+RouteMeetingEvents, ChainMiddleware(s.MeetingEventsHandler(), s.HTMLMiddleWare(s.RequireUser())...))

	// AUTH
	s.RegisterRouteHandler("GET "+RouteSignIn, ChainMiddleware(s.SignInPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteSignIn, ChainMiddleware(s.SignInSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteSignUp, ChainMiddleware(s.SignUpPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteSignUp, ChainMiddleware(s.SignUpSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteOAuth, ChainMiddleware(s.OAuthStartHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.AuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteSignOut, ChainMiddleware(s.SignOutHandler(), s.HTMLMiddleWare()...))

	// PREFERENCES
	s.RegisterRouteHandler("POST "+RouteTheme, ChainMiddleware(s.ThemeHandler(), s.HTMLMiddleWare()...))
}
