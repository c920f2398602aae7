package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wardrobe-planner/internal/logger"
	"github.com/iliyamo/wardrobe-planner/internal/service"
)

// errorBody is the payload of every failed request: a stable
// machine-readable code and a human message.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorHandler is installed as echo's HTTPErrorHandler.  Handlers and
// middleware return errors; this is the only place that turns them into
// responses.  Driver and storage errors never reach the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Request().Method, "path", c.Path(), "status", status, "error", err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.Warn("failed to write error response", "error", err)
	}
}

func errorResponse(err error) (int, errorBody) {
	var se *service.Error
	if errors.As(err, &se) {
		return se.Kind.Status(), errorBody{Error: se.Code, Message: se.Message}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, errorBody{Error: httpCode(he.Code), Message: msg}
	}
	return http.StatusInternalServerError, errorBody{Error: "INTERNAL_ERROR", Message: "internal server error"}
}

// httpCode names the transport-level failures raised by echo itself or by
// request parsing in this package.
func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "ACCESS_TOKEN_REQUIRED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "REQUEST_ERROR"
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
