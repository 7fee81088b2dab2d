package controllers

import (
	"strings"

	"eduadmin_go/apiclient"
	"eduadmin_go/services"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
)

// FeeController serves the fee screen: the current breakdown of a
// (student, course) pair and the add-payment form.
type FeeController struct {
	api    *apiclient.Client
	lock   services.SubmitLock
	events services.EventPublisher
}

func NewFeeController(api *apiclient.Client, lock services.SubmitLock, events services.EventPublisher) *FeeController {
	if lock == nil {
		lock = services.NewLocalSubmitLock()
	}
	return &FeeController{api: api, lock: lock, events: events}
}

func (fc *FeeController) ledger(c *fiber.Ctx) *services.FeeLedgerService {
	return services.NewFeeLedgerService(apiFor(c, fc.api), fc.lock, fc.events)
}

// GetBreakdown handles GET /api/fees/breakdown?studentId=&courseId=.
// actualFee and additionalDiscount preview the terms of a pair with no
// payments yet.
func (fc *FeeController) GetBreakdown(c *fiber.Ctx) error {
	studentID := strings.TrimSpace(c.Query("studentId"))
	courseID := strings.TrimSpace(c.Query("courseId"))
	var fields []utils.FieldError
	if studentID == "" {
		fields = append(fields, utils.FieldError{Field: "studentId", Message: "is required"})
	}
	if courseID == "" {
		fields = append(fields, utils.FieldError{Field: "courseId", Message: "is required"})
	}
	if len(fields) > 0 {
		return respondError(c, utils.NewValidationError("invalid input", fields...))
	}

	actualFee, err := queryInt64(c, "actualFee")
	if err != nil {
		return respondError(c, err)
	}
	discount, err := queryInt64(c, "additionalDiscount")
	if err != nil {
		return respondError(c, err)
	}

	view, err := fc.ledger(c).Breakdown(c.UserContext(), studentID, courseID, services.Terms{
		ActualFee:          actualFee,
		AdditionalDiscount: discount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ledger": view})
}

// RecordPayment handles POST /api/fees/payments.
func (fc *FeeController) RecordPayment(c *fiber.Ctx) error {
	var req services.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}

	event, err := fc.ledger(c).RecordPayment(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return respondSuccess(c, fiber.StatusCreated, "Payment recorded successfully", event)
}
