package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hqrms/hqrms/internal/platform/auth"
)

// AuditEntry records one state-changing staff action.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	SessionID  string
	Resource   string
	ResourceID string
	Action     string // create, update, delete, or the trailing verb (call-next, dispense, ...)
	IPAddress  string
	Path       string
	Method     string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries. Without one, entries go to the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every mutating request under /api/v1 together with the
// authenticated user, after the handler has run.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditable(req.Method, req.URL.Path) {
				return next(c)
			}

			err := next(c)

			ctx := req.Context()
			resource, id, action := parseAuditPath(req.Method, req.URL.Path)
			entry := AuditEntry{
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				SessionID:  auth.SessionIDFromContext(ctx),
				Resource:   resource,
				ResourceID: id,
				Action:     action,
				IPAddress:  c.RealIP(),
				Path:       req.URL.Path,
				Method:     req.Method,
				RequestID:  requestIDFrom(c),
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}

			for _, r := range recorders {
				if rerr := r.RecordAccess(entry); rerr != nil {
					logger.Error().Err(rerr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}
			if len(recorders) == 0 {
				logger.Info().
					Str("type", "audit").
					Str("user_id", entry.UserID).
					Strs("roles", entry.UserRoles).
					Str("session_id", entry.SessionID).
					Str("resource", entry.Resource).
					Str("resource_id", entry.ResourceID).
					Str("action", entry.Action).
					Int("status", entry.StatusCode).
					Str("request_id", entry.RequestID).
					Str("remote_ip", entry.IPAddress).
					Msg("staff action")
			}

			return err
		}
	}
}

func isAuditable(method, path string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}
	return strings.HasPrefix(path, "/api/v1/")
}

// parseAuditPath splits /api/v1/{resource}[/{id}[/{verb}]] into its parts.
// City routes keep their prefix in the resource name.
// Without a trailing verb the action comes from the HTTP method.
func parseAuditPath(method, path string) (resource, id, action string) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1"), "/"), "/")
	if len(parts) > 1 && parts[0] == "city" {
		parts = append([]string{"city/" + parts[1]}, parts[2:]...)
	}
	if len(parts) > 0 {
		resource = parts[0]
	}
	if len(parts) > 1 {
		id = parts[1]
	}
	if len(parts) > 2 {
		action = parts[len(parts)-1]
		return
	}
	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	}
	return
}
