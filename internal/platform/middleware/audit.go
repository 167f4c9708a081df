package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dentalcare/dentalcare/internal/platform/auth"
)

// AuditEntry records who touched which clinic resource and how.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	Resource   string
	ResourceID string
	Action     string // read, create, update, delete or a command such as cancel
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
	Latency    time.Duration
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// resourceAliases maps the controller-style route names onto the canonical
// resource names.
var resourceAliases = map[string]string{
	"patient":     "patients",
	"doctor":      "doctors",
	"appointment": "appointments",
	"treatment":   "treatments",
	"lesion":      "lesions",
	"odontogram":  "odontograms",
}

// Audit logs every /api request after it has been handled and hands the
// entry to the recorders. Recorder failures are logged and never fail the
// request.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = StatusOf(err)
			}

			ctx := req.Context()
			entry := AuditEntry{
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				Timestamp:  start.UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: status,
				Latency:    time.Since(start),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			entry.Resource, entry.ResourceID, entry.Action = classify(req.Method, path)

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// classify splits /api/<resource>[/<id>[/<command>]] into its parts. A POST
// to a command path (/api/appointments/<id>/cancel) is audited as that
// command.
func classify(method, path string) (resource, id, action string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/"), "/"), "/")
	action = httpMethodToAction(method)
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", "", action
	}

	resource = strings.ToLower(segments[0])
	if canonical, ok := resourceAliases[resource]; ok {
		resource = canonical
	}

	rest := segments[1:]
	if len(rest) > 0 && !isUUID(rest[0]) && len(rest) > 1 && isUUID(rest[1]) {
		// /api/odontograms/patient/<id>/...
		rest = rest[1:]
	}
	if len(rest) > 0 && isUUID(rest[0]) {
		id = rest[0]
		if method == http.MethodPost && len(rest) > 1 {
			action = rest[len(rest)-1]
		}
	} else if method == http.MethodPost && len(rest) > 0 {
		action = rest[len(rest)-1]
	}
	return resource, id, action
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
