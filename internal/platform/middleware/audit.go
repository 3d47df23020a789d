package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/auth"
)

// AuditEntry represents an audit log entry produced by the middleware.
// It captures who accessed what, when, from where, and the action type.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	Resource   string
	PatientID  string
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder is the interface that the audit middleware uses to persist
// audit entries, decoupled so that tests can provide a mock implementation.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns Echo middleware that intercepts requests under /api/,
// extracts the authenticated user from JWT claims, determines the resource
// from the URL path, and logs patient-data access.
//
// If no AuditRecorder is provided, it falls back to structured zerolog logging.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditablePath(path) {
				return next(c)
			}

			// Execute the handler first so we capture the response status
			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}

			ctx := req.Context()
			entry.UserID = auth.UserIDFromContext(ctx)
			entry.UserRoles = auth.RolesFromContext(ctx)

			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			entry.Action = httpMethodToAction(req.Method)
			entry.Resource = extractResource(path)
			entry.PatientID = extractPatientID(c)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("record_access")

			return err
		}
	}
}

// isAuditablePath returns true if the path is under /api/.
func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// httpMethodToAction maps HTTP methods to audit action codes.
func httpMethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
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

// extractResource parses the resource name from a URL path.
//
// Supported patterns:
//   - /api/patients          -> patients
//   - /api/patients/123      -> patients
//   - /api/lab/orders/123    -> lab/orders
func extractResource(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown"
	}
	if segments[0] == "lab" && len(segments) > 1 {
		return "lab/" + segments[1]
	}
	return segments[0]
}

// extractPatientID attempts to find a patient identifier in the request.
// It checks the URL path for /api/patients/<id> and the patient_id query param.
func extractPatientID(c echo.Context) string {
	path := c.Request().URL.Path

	if strings.HasPrefix(path, "/api/patients/") {
		segments := strings.Split(strings.TrimPrefix(path, "/api/patients/"), "/")
		if len(segments) > 0 && isUUIDLike(segments[0]) {
			return segments[0]
		}
	}

	if patient := c.QueryParam("patient_id"); patient != "" {
		return patient
	}

	return ""
}

// isUUIDLike checks if a string parses as a UUID.
func isUUIDLike(s string) bool {
	if len(s) < 1 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
