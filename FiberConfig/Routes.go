package FiberConfig

import (
	"errors"
	"time"

	"Convoy/Config"
	"Convoy/Controllers"
	"Convoy/CronJobs"
	"Convoy/Metrics"
	"Convoy/Models"
	"Convoy/Scheduler"
	"Convoy/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps is everything the routes need from main.
type Deps struct {
	DB            *gorm.DB
	Service       *Scheduler.Service
	Metrics       *Metrics.Recorder
	PlanRateLimit float64
	PlanRateBurst int

	// Backups is nil unless the store is sqlite.
	Backups *CronJobs.BackupJob
	// SnagMailer and SnagChat announce new snags; nil disables them.
	SnagMailer Controllers.SnagNotifier
	SnagChat   Controllers.SnagNotifier
}

func SetupRoutes(app *fiber.App, deps Deps) {
	// Initialize handlers
	authHandler := Controllers.NewAuthHandler(deps.DB)
	vehicleHandler := Controllers.NewVehicleHandler(deps.DB, deps.Service)
	driverHandler := Controllers.NewDriverHandler(deps.DB)
	siteHandler := Controllers.NewSiteHandler(deps.DB)
	planningHandler := Controllers.NewPlanningHandler(deps.DB, deps.Service)
	tripHandler := Controllers.NewTripHandler(deps.DB, deps.Service)
	maintenanceHandler := Controllers.NewMaintenanceHandler(deps.DB)
	dashboardHandler := Controllers.NewDashboardHandler(deps.DB)
	snagHandler := Controllers.NewSnagHandler(deps.DB, deps.SnagMailer, deps.SnagChat)
	backupHandler := Controllers.NewBackupHandler(deps.Backups)

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))

	// API group
	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/me", middleware.Verify(Models.PermissionDispatcher), authHandler.Me)

	dispatcher := middleware.Verify(Models.PermissionDispatcher)
	admin := middleware.Verify(Models.PermissionAdmin)

	// Fleet records: dispatchers read, admins write
	vehicles := api.Group("/vehicles")
	vehicles.Get("/", dispatcher, vehicleHandler.GetVehicles)
	vehicles.Get("/:id", dispatcher, vehicleHandler.GetVehicle)
	vehicles.Patch("/:id/status", dispatcher, vehicleHandler.ToggleStatus)
	vehicles.Post("/", admin, vehicleHandler.CreateVehicle)
	vehicles.Put("/:id", admin, vehicleHandler.UpdateVehicle)
	vehicles.Delete("/:id", admin, vehicleHandler.DeleteVehicle)

	drivers := api.Group("/drivers")
	drivers.Get("/", dispatcher, driverHandler.GetDrivers)
	drivers.Post("/", admin, driverHandler.CreateDriver)
	drivers.Put("/:id", admin, driverHandler.UpdateDriver)
	drivers.Delete("/:id", admin, driverHandler.DeleteDriver)

	sites := api.Group("/sites")
	sites.Get("/", dispatcher, siteHandler.GetSites)
	sites.Get("/:id/compatibility", dispatcher, siteHandler.CheckCompatibility)
	sites.Post("/", admin, siteHandler.CreateSite)
	sites.Put("/:id", admin, siteHandler.UpdateSite)
	sites.Delete("/:id", admin, siteHandler.DeleteSite)

	// Planning routes
	limiter := middleware.RateLimit(deps.PlanRateLimit, deps.PlanRateBurst)
	plans := api.Group("/plans", dispatcher)
	plans.Post("/", limiter, planningHandler.CreatePlan)
	plans.Get("/", planningHandler.GetPlans)
	plans.Get("/:id", planningHandler.GetPlan)

	// Trip routes
	trips := api.Group("/trips", dispatcher)
	trips.Post("/schedule", limiter, planningHandler.ScheduleTrip)
	trips.Get("/", tripHandler.GetTrips)
	trips.Get("/export", tripHandler.ExportTrips)
	trips.Get("/events", tripHandler.GetTripEvents)
	trips.Get("/:id", tripHandler.GetTrip)
	trips.Patch("/:id/complete", tripHandler.CompleteTrip)
	trips.Delete("/:id", tripHandler.RevertTrip)

	maintenance := api.Group("/maintenance", dispatcher)
	maintenance.Get("/", maintenanceHandler.GetLogs)
	maintenance.Post("/", maintenanceHandler.CreateLog)
	maintenance.Delete("/:id", admin, maintenanceHandler.DeleteLog)

	api.Get("/dashboard", dispatcher, dashboardHandler.GetStats)

	// Snag routes: reporters work on their own snags, admins on all
	snags := api.Group("/snags", dispatcher)
	snags.Post("/", snagHandler.SubmitSnag)
	snags.Get("/", snagHandler.GetSnags)
	snags.Get("/options", snagHandler.GetOptions)
	snags.Post("/options/clear", admin, snagHandler.ClearOptions)
	snags.Get("/export", snagHandler.ExportSnags)
	snags.Get("/:id", snagHandler.GetSnag)
	snags.Patch("/:id/status", snagHandler.UpdateStatus)
	snags.Patch("/:id/cost", admin, snagHandler.UpdateCost)
	snags.Post("/:id/notes", snagHandler.AddNote)
	snags.Delete("/:id", admin, snagHandler.DeleteSnag)

	backups := api.Group("/admin/backups", admin)
	backups.Get("/", backupHandler.GetSchedule)
	backups.Post("/", backupHandler.CreateBackup)
	backups.Put("/schedule", backupHandler.UpdateSchedule)
}

// errorHandler answers unhandled errors with the same JSON envelope the
// handlers use.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"message": message})
}

// New builds the fiber app with the shared middleware stack.
func New(cfg Config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Convoy",
		ErrorHandler: errorHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})
	app.Use(middleware.RequestLogger(cfg.LogDir))
	app.Use(middleware.ErrorLogger(cfg.LogDir))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: cfg.CORSOrigins != "*",
		MaxAge:           300,
	}))
	return app
}
