package handler // handler defines http handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/middleware"
)

// ownerID returns the authenticated caller's id.  Routes that use it sit
// behind JWTAuth, so a miss means the router is misconfigured.
func ownerID(c echo.Context) (uint64, error) {
	p, ok := middleware.Principal(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "access token required")
	}
	return p.ID, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid " + name)
	}
	return id, nil
}

// bind decodes the request body into v.  Decoding errors are reported as
// a validation failure without echoing the decoder message.
func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}
