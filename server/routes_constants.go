package server

// Route path constants
const (
	RouteLogin    = "/login"
	RouteCallback = "/login/oauth2/code/{registrationId}"
	RouteLogout   = "/logout"
	RouteUserInfo = "/userinfo"

	RouteIsAlive = "/internal/isalive"
	RouteIsReady = "/internal/isready"

	// callbackPathPrefix is the concrete callback path up to the
	// registration id segment.
	callbackPathPrefix = "/login/oauth2/code/"
)
