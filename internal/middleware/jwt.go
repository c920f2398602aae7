package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/service"
)

// Authenticator validates a raw access token.  *service.TokenService
// satisfies it.
type Authenticator interface {
	Authenticate(raw string) (service.Principal, error)
}

// JWTAuth returns an Echo middleware that validates the Bearer access token
// and stores the caller in the context under "principal" and "user_id".
// Failures are returned as *service.Error so the central error handler can
// tell a missing token, an expired one and a forged one apart.
func JWTAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := auth.Authenticate(bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)))
			if err != nil {
				return err
			}
			c.Set(principalKey, p)
			c.Set("user_id", p.ID)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.  Anything else yields "".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
