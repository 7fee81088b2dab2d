package routes

import (
	"errors"
	"time"

	"eduadmin_go/apiclient"
	"eduadmin_go/controllers"
	"eduadmin_go/handlers"
	"eduadmin_go/middleware"
	"eduadmin_go/models"
	"eduadmin_go/services"
	"eduadmin_go/services/documents"
	"eduadmin_go/services/notifications"
	"eduadmin_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

// Dependencies are the wired services the route table needs.
type Dependencies struct {
	API      *apiclient.Client
	PageSize int
	Location *time.Location

	Lock   services.SubmitLock
	Events *notifications.Service
	Hub    *websocket.Hub

	Documents         documents.DocumentStore
	MaxFileSize       int64
	AllowedExtensions []string

	Activity *services.ActivityRecorder
	Archive  *services.LogArchiveService
	Health   *services.HealthService
	Webhook  *handlers.LineWebhookHandler
}

// withDefaults fills optional dependencies with their in-process versions.
func (d Dependencies) withDefaults() Dependencies {
	if d.Events == nil {
		d.Events = notifications.NewService()
	}
	if d.Hub == nil {
		d.Hub = websocket.NewHub()
	}
	if d.Lock == nil {
		d.Lock = services.NewLocalSubmitLock()
	}
	if d.Documents == nil {
		d.Documents = documents.NewInMemoryFallbackStore()
	}
	if d.Activity == nil {
		d.Activity = services.NewActivityRecorder(nil, nil)
	}
	if d.Archive == nil {
		d.Archive = services.NewLogArchiveService(nil, nil, nil, 0)
	}
	if d.Health == nil {
		var api services.RestAPI
		if d.API != nil {
			api = d.API
		}
		d.Health = services.NewHealthService("", "", api, nil, nil)
	}
	return d
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	deps = deps.withDefaults()

	students := controllers.NewResourceController[models.Student](deps.API, controllers.StudentResource, deps.PageSize)
	courses := controllers.NewResourceController[models.Course](deps.API, controllers.CourseResource, deps.PageSize)
	enquiries := controllers.NewResourceController[models.Enquiry](deps.API, controllers.EnquiryResource, deps.PageSize)
	attendance := controllers.NewResourceController[models.AttendanceRecord](deps.API, controllers.AttendanceResource, deps.PageSize)
	feeAssignments := controllers.NewResourceController[models.FeeAssignment](deps.API, controllers.FeeAssignmentResource, deps.PageSize)

	feeController := controllers.NewFeeController(deps.API, deps.Lock, deps.Events)
	enquiryController := controllers.NewEnquiryController(deps.API, deps.Events)
	attendanceController := controllers.NewAttendanceController(deps.API, deps.Events, deps.Location)
	documentController := controllers.NewDocumentController(deps.Documents, deps.MaxFileSize, deps.AllowedExtensions)
	exportController := controllers.NewExportController(deps.API, deps.PageSize)
	logController := controllers.NewLogController(deps.Activity, deps.Archive)
	eventController := controllers.NewEventController(deps.Events)
	healthController := controllers.NewHealthController(deps.Health)
	wsController := controllers.NewWebSocketController(deps.Hub)

	app.Get("/health", healthController.GetHealthStatus)
	if deps.Webhook != nil {
		app.Post("/webhook/line", deps.Webhook.Handle)
	}
	app.Get("/ws", wsController.Upgrade, wsController.WebSocketHandler())

	api := app.Group("/api", middleware.LogActivityMiddleware(deps.Activity))

	// Students and their documents
	st := api.Group("/students")
	st.Get("/", students.List)
	st.Get("/:id", students.Get)
	st.Post("/", students.Create)
	st.Put("/:id", students.Update)
	st.Delete("/:id", students.Delete)
	st.Get("/:id/documents", documentController.GetDocuments)
	st.Post("/:id/documents", documentController.UploadDocument)
	st.Get("/:id/documents/:docId/content", documentController.GetContent)
	st.Delete("/:id/documents/:docId", documentController.DeleteDocument)

	co := api.Group("/courses")
	co.Get("/", courses.List)
	co.Get("/:id", courses.Get)
	co.Post("/", courses.Create)
	co.Put("/:id", courses.Update)
	co.Delete("/:id", courses.Delete)

	en := api.Group("/enquiries")
	en.Get("/statuses", enquiryController.GetStatuses)
	en.Get("/", enquiries.List)
	en.Get("/:id", enquiries.Get)
	en.Post("/", enquiries.Create)
	en.Put("/:id", enquiries.Update)
	en.Put("/:id/status", enquiryController.ChangeStatus)
	en.Delete("/:id", enquiries.Delete)

	at := api.Group("/attendance")
	at.Get("/eligible", attendanceController.GetEligible)
	at.Post("/mark", attendanceController.Mark)
	at.Get("/", attendance.List)
	at.Get("/:id", attendance.Get)
	at.Delete("/:id", attendance.Delete)

	// Fee events are append-only: created through /fees/payments, never edited
	fa := api.Group("/fee-assignments")
	fa.Get("/", feeAssignments.List)
	fa.Get("/:id", feeAssignments.Get)

	fees := api.Group("/fees")
	fees.Get("/breakdown", feeController.GetBreakdown)
	fees.Post("/payments", feeController.RecordPayment)

	api.Get("/export/:resource", exportController.Export)

	logs := api.Group("/logs")
	logs.Get("/", logController.GetLogs)
	logs.Get("/archives", logController.GetArchives)
	logs.Get("/archives/:id/download", logController.DownloadArchive)
	logs.Post("/archive", logController.ArchiveNow)

	api.Get("/events/recent", eventController.GetRecent)
}

// NotFound answers unmatched routes.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":  "Route not found",
		"path":   c.Path(),
		"method": c.Method(),
	})
}

// NewApp builds the fiber app with the global middleware and every route.
func NewApp(deps Dependencies, bodyLimit int) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		BodyLimit:    bodyLimit,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.ForwardToken())

	SetupRoutes(app, deps)
	app.Use(NotFound)
	return app
}

// ErrorHandler handles errors no controller rendered.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
