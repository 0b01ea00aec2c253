package usercontext

// Locals/session keys shared by the session middleware, the API-key
// middleware and the controllers.
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
)
