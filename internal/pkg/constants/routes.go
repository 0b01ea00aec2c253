package constants

// Static route constants
const (
	RedirectRoute = "/l"
	PublicRoute   = "/"
	// Redirect path without leading slash for URL construction
	RedirectPath = "l"
)
