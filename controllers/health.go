package controllers

import (
	"eduadmin_go/services"

	"github.com/gofiber/fiber/v2"
)

// HealthController exposes the aggregated health endpoint.
type HealthController struct {
	service *services.HealthService
}

func NewHealthController(service *services.HealthService) *HealthController {
	return &HealthController{service: service}
}

// GetHealthStatus returns the aggregated health report.
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	report := hc.service.GetHealthReport(c.UserContext())
	return c.Status(hc.service.HTTPStatusForOverall(report.Status)).JSON(report)
}
