package controllers

import (
	"errors"
	"strconv"

	"eduadmin_go/apiclient"
	"eduadmin_go/middleware"
	"eduadmin_go/services/listing"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// respondError renders err by kind: validation 400 (422 when fields are
// attached), not found 404, upstream failure 502. Anything else is 500.
func respondError(c *fiber.Ctx, err error) error {
	var verr *utils.ValidationError
	var nf *utils.NotFoundError
	var terr *utils.TransportError

	switch {
	case errors.As(err, &verr):
		status := fiber.StatusBadRequest
		if len(verr.Fields) > 0 {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(fiber.Map{
			"error":  verr.Message,
			"fields": verr.Fields,
		})
	case errors.As(err, &nf):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": nf.Error(),
		})
	case errors.As(err, &terr):
		logrus.WithFields(logrus.Fields{
			"path":   c.Path(),
			"method": c.Method(),
		}).WithError(err).Error("institute API request failed")
		if terr.Status == fiber.StatusUnauthorized || terr.Status == fiber.StatusForbidden {
			return c.Status(terr.Status).JSON(fiber.Map{
				"error": "Not authorized by the institute API",
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Institute API is unavailable, please try again",
		})
	default:
		logrus.WithFields(logrus.Fields{
			"path":   c.Path(),
			"method": c.Method(),
		}).WithError(err).Error("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

// respondSuccess is the body every successful mutation returns.
func respondSuccess(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// respondPage renders a listing page. A failed fetch is a 502 that still
// carries the empty page so the UI can show its error state.
func respondPage[T any](c *fiber.Ctx, page listing.Page[T]) error {
	body := fiber.Map{
		"items":      page.Items,
		"pagination": page.Pager().Meta(),
		"outcome":    page.Outcome,
	}
	if page.Outcome == listing.OutcomeFailed {
		logrus.WithField("path", c.Path()).WithError(page.Err).Warn("listing failed")
		body["error"] = "Could not load records, please retry"
		return c.Status(fiber.StatusBadGateway).JSON(body)
	}
	return c.JSON(body)
}

// apiFor returns the API client forwarding the caller's token.
func apiFor(c *fiber.Ctx, api *apiclient.Client) *apiclient.Client {
	return api.WithToken(middleware.GetToken(c))
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func queryInt64(c *fiber.Ctx, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, utils.NewValidationError("invalid amount", utils.FieldError{Field: key, Message: "must be a whole number"})
	}
	return n, nil
}

func invalidBody() error {
	return utils.NewValidationError("Invalid request body")
}
