// Package envelope renders every API response as
// {code, message, success, ...fields}.
package envelope

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Application result codes carried in the code field.
const (
	CodeOK              = 0
	CodeNotFound        = 2
	CodeValidation      = 3
	CodeDuplicate       = 4
	CodeServerError     = 5
	CodeUpstreamFailure = 6
	CodeUpstreamTimeout = 7
	CodeUnauthorized    = 8
)

// Error is an API error with its HTTP status and application code.
type Error struct {
	Status  int
	Code    int
	Message string
	Fields  map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d/%d: %s", e.Status, e.Code, e.Message)
}

func NewError(status, code int, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// With attaches extra body fields to the error response.
func (e *Error) With(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// OK writes a successful envelope with the given fields merged in.
func OK(c echo.Context, status int, message string, fields map[string]any) error {
	return c.JSON(status, body(CodeOK, message, true, fields))
}

func body(code int, message string, success bool, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		out[k] = v
	}
	out["code"] = code
	out["message"] = message
	out["success"] = success
	return out
}

// ErrorHandler renders errors returned by handlers and middleware.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &httpErr):
			apiErr = fromHTTPError(httpErr, c)
		default:
			apiErr = NewError(http.StatusInternalServerError, CodeServerError, "internal server error")
		}

		if apiErr.Status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(apiErr.Status)
		} else {
			writeErr = c.JSON(apiErr.Status, body(apiErr.Code, apiErr.Message, false, apiErr.Fields))
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}

func fromHTTPError(he *echo.HTTPError, c echo.Context) *Error {
	msg := fmt.Sprintf("%v", he.Message)
	switch he.Code {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return NewError(http.StatusNotFound, CodeNotFound, "Endpoint not found").With("path", c.Request().URL.Path)
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewError(he.Code, CodeUnauthorized, msg)
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return NewError(he.Code, CodeValidation, msg)
	case http.StatusTooManyRequests:
		return NewError(he.Code, CodeServerError, msg)
	default:
		if he.Code < http.StatusInternalServerError {
			return NewError(he.Code, CodeValidation, msg)
		}
		return NewError(he.Code, CodeServerError, msg)
	}
}
