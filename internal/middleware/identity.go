package middleware

// identity.go holds the helpers that read the authenticated caller back out
// of the Echo context.  Handlers use Principal; the limiter and the cache
// use userID for their keys.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/service"
)

const principalKey = "principal"

// Principal returns the caller stored by JWTAuth.  ok is false on routes
// that are not behind JWTAuth.
func Principal(c echo.Context) (service.Principal, bool) {
	p, ok := c.Get(principalKey).(service.Principal)
	return p, ok && p.ID != 0
}

// userID returns the caller's id as a string, or "anon" when the request
// is not authenticated.
func userID(c echo.Context) string {
	if p, ok := Principal(c); ok {
		return strconv.FormatUint(p.ID, 10)
	}
	return "anon"
}
