package controllers

import (
	"fmt"
	"strings"
	"time"

	"eduadmin_go/apiclient"
	"eduadmin_go/models"
	"eduadmin_go/services"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
)

type AttendanceController struct {
	api    *apiclient.Client
	events services.EventPublisher
	loc    *time.Location
}

func NewAttendanceController(api *apiclient.Client, events services.EventPublisher, loc *time.Location) *AttendanceController {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceController{api: api, events: events, loc: loc}
}

func (ac *AttendanceController) service(c *fiber.Ctx) *services.AttendanceService {
	return services.NewAttendanceService(apiFor(c, ac.api), ac.events, ac.loc)
}

// dayParam reads a YYYY-MM-DD value, defaulting to today.
func (ac *AttendanceController) dayParam(raw string) (models.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return models.NewDate(time.Now().In(ac.loc)), nil
	}
	d, err := models.ParseDate(raw, ac.loc)
	if err != nil {
		return models.Date{}, utils.NewValidationError("invalid date", utils.FieldError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	return d, nil
}

// GetEligible handles GET /api/attendance/eligible?courseId=&date=.
func (ac *AttendanceController) GetEligible(c *fiber.Ctx) error {
	day, err := ac.dayParam(c.Query("date"))
	if err != nil {
		return respondError(c, err)
	}
	students, err := ac.service(c).Eligible(c.UserContext(), c.Query("courseId"), day.Time)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"date":     day.String(),
		"students": students,
	})
}

// MarkRequest is the bulk attendance form.
type MarkRequest struct {
	CourseID string      `json:"courseId"`
	Date     string      `json:"date"`
	Entries  []MarkEntry `json:"entries"`
}

type MarkEntry struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

// Mark handles POST /api/attendance/mark. Each entry succeeds or fails on
// its own; the response lists the result per student.
func (ac *AttendanceController) Mark(c *fiber.Ctx) error {
	var req MarkRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}
	if len(req.Entries) == 0 {
		return respondError(c, utils.NewValidationError("no attendance entries", utils.FieldError{Field: "entries", Message: "is required"}))
	}
	day, err := ac.dayParam(req.Date)
	if err != nil {
		return respondError(c, err)
	}

	records := make([]models.AttendanceRecord, 0, len(req.Entries))
	for _, e := range req.Entries {
		records = append(records, models.AttendanceRecord{
			StudentID: strings.TrimSpace(e.StudentID),
			CourseID:  strings.TrimSpace(req.CourseID),
			Date:      day,
			Status:    strings.TrimSpace(e.Status),
			Notes:     strings.TrimSpace(e.Notes),
		})
	}

	results := ac.service(c).Mark(c.UserContext(), records)
	saved := 0
	for _, r := range results {
		if r.Saved != nil {
			saved++
		}
	}
	return c.JSON(fiber.Map{
		"success": saved == len(results),
		"message": fmt.Sprintf("%d of %d attendance records saved", saved, len(results)),
		"data":    results,
	})
}
