package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"eduadmin_go/models"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		logrus.WithFields(logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).String(),
			"ip":         c.IP(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
		}).Info("HTTP Request")

		return err
	}
}

// ActivityRecorder persists one audit entry.
type ActivityRecorder interface {
	Record(ctx context.Context, entry models.ActivityLog) error
}

// RequestIDHeader is echoed into activity log details.
const RequestIDHeader = "X-Request-ID"

// LogActivityMiddleware records successful mutating requests under /api.
// Recording happens off the request path; failures are only logged.
func LogActivityMiddleware(rec ActivityRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		action := actionFor(c.Method())
		if rec == nil || action == "" {
			return c.Next()
		}

		err := c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			return err
		}

		// fasthttp reuses request buffers once the handler returns, so
		// everything the goroutine keeps is copied first.
		method := fiberutils.CopyString(c.Method())
		path := fiberutils.CopyString(c.Path())
		resource, resourceID := resourceFromPath(path)
		requestID := fiberutils.CopyString(c.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		details, _ := json.Marshal(map[string]interface{}{
			"method":     method,
			"path":       path,
			"status":     c.Response().StatusCode(),
			"request_id": requestID,
		})

		entry := models.ActivityLog{
			Actor:      fiberutils.CopyString(GetActor(c)),
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Details:    details,
			IPAddress:  fiberutils.CopyString(c.IP()),
			UserAgent:  fiberutils.CopyString(c.Get(fiber.HeaderUserAgent)),
		}
		entry.CreatedAt = time.Now()

		go func(entry models.ActivityLog) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("panic", r).Error("panic recovered while recording activity")
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rec.Record(ctx, entry); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"action":   entry.Action,
					"resource": entry.Resource,
				}).Error("Failed to record activity")
			}
		}(entry)

		return nil
	}
}

func actionFor(method string) string {
	switch method {
	case fiber.MethodPost:
		return "CREATE"
	case fiber.MethodPut, fiber.MethodPatch:
		return "UPDATE"
	case fiber.MethodDelete:
		return "DELETE"
	}
	return ""
}

// resourceFromPath maps /api/students/42/documents to ("students", "42").
func resourceFromPath(path string) (string, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 0 && parts[0] == "api" {
		parts = parts[1:]
	}
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[1]
	}
}
