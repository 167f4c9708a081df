package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// StatusOf returns the HTTP status an error will be rendered with.
func StatusOf(err error) int {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Code.HTTPStatus()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(apperr.CodeValidation)
	case http.StatusUnauthorized:
		return string(apperr.CodeUnauthorized)
	case http.StatusForbidden:
		return string(apperr.CodeForbidden)
	case http.StatusNotFound:
		return string(apperr.CodeNotFound)
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		return string(apperr.CodeConflict)
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusUnprocessableEntity:
		return string(apperr.CodeBusinessRule)
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	case http.StatusGatewayTimeout:
		return "TIMEOUT"
	}
	return string(apperr.CodeInternal)
}

// ErrorHandler renders errors returned by handlers and middleware. It is
// installed as echo's HTTPErrorHandler.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		rid, _ := c.Get("request_id").(string)
		detail := ErrorDetail{RequestID: rid}
		status := http.StatusInternalServerError

		var appErr *apperr.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status = appErr.Code.HTTPStatus()
			detail.Code = string(appErr.Code)
			detail.Message = appErr.Message
			detail.Details = appErr.Details
		case errors.As(err, &he):
			status = he.Code
			detail.Code = codeForStatus(status)
			detail.Message = fmt.Sprint(he.Message)
		default:
			detail.Code = string(apperr.CodeInternal)
		}

		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
			if status == http.StatusInternalServerError {
				detail.Message = "internal server error"
				detail.Details = nil
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, ErrorBody{Error: detail})
		}
		if werr != nil {
			logger.Error().Err(werr).Str("request_id", rid).Msg("write error response")
		}
	}
}
