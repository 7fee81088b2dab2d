package controllers

import (
	"context"

	"eduadmin_go/services/notifications"

	"github.com/gofiber/fiber/v2"
)

// EventFeed is the read side of the notification service.
type EventFeed interface {
	Recent(ctx context.Context, n int) ([]notifications.Event, error)
}

type EventController struct {
	feed EventFeed
}

func NewEventController(feed EventFeed) *EventController {
	return &EventController{feed: feed}
}

// GetRecent handles GET /api/events/recent?limit=
func (ec *EventController) GetRecent(c *fiber.Ctx) error {
	events, err := ec.feed.Recent(c.UserContext(), queryInt(c, "limit", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}
