package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/portal/gateway/internal/platform/auth"
)

// healthCheckPrefix is where clinical and employee data is served.
const healthCheckPrefix = "/api/gateway/health-check/"

// AuditEntry records one access to health-check data.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	Resource   string
	CampaignID string
	EmployeeID string
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs who touched which campaign or employee through the
// health-check routes. Other routes pass through untouched.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: responseStatus(c, err),
				UserID:     auth.UserIDFromContext(req.Context()),
				UserRoles:  auth.RolesFromContext(req.Context()),
				Action:     httpMethodToAction(req.Method),
				Resource:   extractResource(path),
				CampaignID: extractCampaignID(c),
				EmployeeID: c.QueryParam("employee_id"),
			}
			entry.RequestID, _ = c.Get("request_id").(string)

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
				Str("type", "health_check_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("campaign_id", entry.CampaignID).
				Str("employee_id", entry.EmployeeID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("data_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, healthCheckPrefix)
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

// extractResource names the health-check resource addressed by path:
//   - /api/gateway/health-check/campaigns/42      -> campaigns
//   - /api/gateway/health-check/his/submit-result -> his/submit-result
//   - /api/gateway/health-check/report/export     -> report/export
func extractResource(path string) string {
	rest := strings.Trim(strings.TrimPrefix(path, healthCheckPrefix), "/")
	if rest == "" {
		return "unknown"
	}
	segments := strings.Split(rest, "/")
	switch segments[0] {
	case "campaigns":
		return "campaigns"
	case "his", "report", "sync":
		if len(segments) > 1 {
			return segments[0] + "/" + segments[1]
		}
	}
	return segments[0]
}

func extractCampaignID(c echo.Context) string {
	if id := c.QueryParam("campaign_id"); id != "" {
		return id
	}
	path := c.Request().URL.Path
	if rest, ok := strings.CutPrefix(path, healthCheckPrefix+"campaigns/"); ok {
		id, _, _ := strings.Cut(rest, "/")
		return id
	}
	return ""
}
