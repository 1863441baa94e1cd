package routes

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"coursehub/backend/config"
	"coursehub/backend/controllers"
	"coursehub/backend/middleware"
	"coursehub/backend/player"
	"coursehub/backend/progress"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

// Services are the wired progress-core components the HTTP layer calls into.
type Services struct {
	Store    store.DataAccess
	Recorder *progress.Recorder
	Loader   *progress.DashboardLoader
	Overlays *progress.Overlays
	Players  *player.Registry
	Log      *utils.Logger
}

// NewApp builds the fiber app with its global middleware and routes.
func NewApp(cfg *config.Config, svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "coursehub",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return utils.HandleError(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.TrimSpace(cfg.CORSOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(svc.Log))

	SetupRoutes(app, cfg, svc)
	return app
}

func SetupRoutes(app *fiber.App, cfg *config.Config, svc Services) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	api := app.Group("/api", authMiddleware)

	// Progress routes
	progressController := controllers.NewProgressController(svc.Loader, svc.Recorder, svc.Overlays)
	api.Get("/dashboard", progressController.GetDashboard)

	// Courses routes
	coursesController := controllers.NewCoursesController(svc.Store, svc.Recorder, svc.Log)
	courses := api.Group("/courses")
	courses.Get("/", coursesController.GetCourses)
	courses.Get("/:id", coursesController.GetCourseDetails)
	courses.Get("/:id/progress", progressController.GetCourseProgress)
	courses.Get("/:id/next-lesson", progressController.GetNextLesson)
	courses.Post("/:id/enroll", coursesController.Enroll)
	courses.Delete("/:id/enroll", coursesController.Unenroll)

	// Lesson routes
	playerController := controllers.NewPlayerController(svc.Players, svc.Recorder, svc.Log)
	lessons := api.Group("/lessons")
	lessons.Post("/:lessonId/complete", progressController.CompleteLesson)
	lessons.Post("/:lessonId/watch", progressController.RecordWatch)
	lessons.Post("/:lessonId/player", playerController.HandleEvent)
}
