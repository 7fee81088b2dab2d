package controllers

import (
	"eduadmin_go/apiclient"
	"eduadmin_go/services"

	"github.com/gofiber/fiber/v2"
)

type EnquiryController struct {
	api    *apiclient.Client
	events services.EventPublisher
}

func NewEnquiryController(api *apiclient.Client, events services.EventPublisher) *EnquiryController {
	return &EnquiryController{api: api, events: events}
}

// ChangeStatus handles PUT /api/enquiries/:id/status with {status, reason}.
func (ec *EnquiryController) ChangeStatus(c *fiber.Ctx) error {
	var req services.StatusChange
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	svc := services.NewEnquiryService(apiFor(c, ec.api), ec.events)
	enquiry, err := svc.ChangeStatus(c.UserContext(), c.Params("id"), req.Status, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, fiber.StatusOK, "Enquiry status updated", enquiry)
}

// GetStatuses lists the statuses an enquiry can move between.
func (ec *EnquiryController) GetStatuses(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"statuses": services.EnquiryStatuses})
}
