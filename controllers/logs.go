package controllers

import (
	"io"
	"strconv"

	"eduadmin_go/services"
	"eduadmin_go/services/listing"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
)

// LogController serves the audit trail and its archives.
type LogController struct {
	recorder *services.ActivityRecorder
	archive  *services.LogArchiveService
}

func NewLogController(recorder *services.ActivityRecorder, archive *services.LogArchiveService) *LogController {
	return &LogController{recorder: recorder, archive: archive}
}

// GetLogs handles GET /api/logs?actor=&resource=&action=&page=&limit=
func (lc *LogController) GetLogs(c *fiber.Ctx) error {
	f := services.ActivityFilter{
		Actor:    c.Query("actor"),
		Resource: c.Query("resource"),
		Action:   c.Query("action"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", 50),
	}
	logs, total, err := lc.recorder.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}
	pager := listing.NewPager(f.Page, f.PageSize, int(total))
	return c.JSON(fiber.Map{
		"logs":       logs,
		"pagination": pager.Meta(),
	})
}

// GetArchives handles GET /api/logs/archives
func (lc *LogController) GetArchives(c *fiber.Ctx) error {
	archives, err := lc.archive.Archives(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"archives": archives})
}

// DownloadArchive handles GET /api/logs/archives/:id/download
func (lc *LogController) DownloadArchive(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return respondError(c, utils.NewValidationError("Invalid archive ID"))
	}
	body, name, err := lc.archive.DownloadArchive(c.UserContext(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return respondError(c, err)
	}
	c.Attachment(name)
	return c.Send(data)
}

// ArchiveRequest is the manual archive form.
type ArchiveRequest struct {
	Days int `json:"days" validate:"gte=7"`
}

// ArchiveNow handles POST /api/logs/archive
func (lc *LogController) ArchiveNow(c *fiber.Ctx) error {
	var req ArchiveRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalidBody())
	}
	if err := utils.ValidateStruct(req); err != nil {
		return respondError(c, err)
	}
	if _, err := lc.archive.FlushCachedLogs(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	archive, err := lc.archive.ArchiveOldLogs(c.UserContext(), req.Days)
	if err != nil {
		return respondError(c, err)
	}
	if archive == nil {
		return respondSuccess(c, fiber.StatusOK, "No logs old enough to archive", nil)
	}
	return respondSuccess(c, fiber.StatusCreated, "Logs archived successfully", archive)
}
