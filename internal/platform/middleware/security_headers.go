package middleware

import (
	"github.com/labstack/echo/v4"
)

// Headers set on every response. The API serves JSON only and patient data
// must never land in a browser cache, so the policy is deny-everything:
// no framing, no resource loading, no caching, HSTS for a year.
var securityHeaders = [...][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	{"Cache-Control", "no-store"},
}

func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
