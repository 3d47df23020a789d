package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorResponse is the JSON envelope returned for every failed request.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorHandler returns an echo HTTPErrorHandler that renders every error as a
// uniform JSON envelope. Messages from 5xx errors are replaced with a generic
// string so that internal details never reach the client; the original error
// is logged instead.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			switch m := he.Message.(type) {
			case string:
				message = m
			case error:
				message = m.Error()
			default:
				message = http.StatusText(code)
			}
		}

		if code >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
			message = "internal server error"
		}

		resp := ErrorResponse{
			Success:   false,
			Message:   message,
			Code:      code,
			Timestamp: time.Now().UTC(),
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}
