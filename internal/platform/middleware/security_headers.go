package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeadersConfig selects the transport-level headers. HSTS is only
// sent when the service is reached over TLS, i.e. outside development.
type SecurityHeadersConfig struct {
	HSTS bool
}

// apiCSP forbids every fetch and framing. The service only answers JSON, so
// a browser must never render or embed a response.
const apiCSP = "default-src 'none'; frame-ancestors 'none'; sandbox"

// SecurityHeaders hardens responses for a JSON-only API. Everything under
// /api may carry patient records and is never stored by caches; the
// unauthenticated health probes only ask for revalidation.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			if strings.HasPrefix(c.Request().URL.Path, "/health") {
				h.Set("Cache-Control", "no-cache")
			} else {
				h.Set("Cache-Control", "no-store")
				h.Set("Pragma", "no-cache")
			}
			return next(c)
		}
	}
}
