package app

import (
	"envios-backend/internal/allocation"
	"envios-backend/internal/archive"
	"envios-backend/internal/auth"
	"envios-backend/internal/config"
	"envios-backend/internal/constants"
	"envios-backend/internal/database"
	"envios-backend/internal/middleware"
	"envios-backend/internal/periods"
	"envios-backend/internal/reports"
	"envios-backend/internal/reservations"
	"envios-backend/internal/status"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. The returned DB and Redis clients are exposed so main can
// verify connectivity before listening.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Session (Redis)
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)

	// Tracing + route logger
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	// Liveness
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// DB may be nil when DATABASE_URL is not set (e.g. some tests); routes
	// that need it are only mounted when it is available.
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		if err := database.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return nil, nil, nil, err
		}
	}

	// Auth (no auth middleware): POST login, GET me, DELETE logout
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	// --- Protected modules (auth required) ---
	if db != nil {
		machine := status.NewMachine()

		// Periods module (create/update/close are admin-only)
		periodService := &periods.Service{DB: db}
		archiveService := &archive.Service{DB: db}
		periodHandlers := &periods.Handlers{Service: periodService, Archiver: archiveService}
		periodGroup := app.Group("/api/v1/periods", middleware.RequireAuth())
		periodGroup.Post("/create-period", middleware.AuthorizePermission(constants.ManagePeriods), periodHandlers.CreatePeriod)
		periodGroup.Get("/get-all-periods", periodHandlers.GetAllPeriods)
		periodGroup.Get("/get-period/:period_id", periodHandlers.GetPeriod)
		periodGroup.Patch("/update-period/:period_id", middleware.AuthorizePermission(constants.ManagePeriods), periodHandlers.UpdatePeriod)
		periodGroup.Post("/close-period/:period_id", middleware.AuthorizePermission(constants.ClosePeriod), periodHandlers.ClosePeriod)

		// Reservations module
		allocator := &allocation.Service{DB: db}
		reservationService := &reservations.Service{DB: db, Machine: machine}
		reservationHandlers := &reservations.Handlers{Service: reservationService, Allocator: allocator}
		reservationGroup := app.Group("/api/v1/reservations", middleware.RequireAuth())
		reservationGroup.Post("/create-reservation", reservationHandlers.CreateReservation)
		reservationGroup.Get("/get-reservations", reservationHandlers.GetReservations)
		reservationGroup.Get("/get-reservation/:reservation_id", reservationHandlers.GetReservation)
		reservationGroup.Patch("/update-reservation/:reservation_id", reservationHandlers.UpdateReservation)
		reservationGroup.Delete("/delete-reservation/:reservation_id", reservationHandlers.DeleteReservation)
		reservationGroup.Patch("/update-status/:reservation_id", reservationHandlers.UpdateStatus)

		// Reports module (history is admin-only)
		reportService := &reports.Service{DB: db}
		reportHandlers := &reports.Handlers{Service: reportService}
		reportGroup := app.Group("/api/v1/reports", middleware.RequireAuth())
		reportGroup.Get("/dashboard", reportHandlers.Dashboard)
		reportGroup.Get("/history", middleware.AuthorizePermission(constants.ViewHistory), reportHandlers.GetHistory)
		reportGroup.Get("/history/:historical_period_id", middleware.AuthorizePermission(constants.ViewHistory), reportHandlers.GetHistoryDetail)
	}

	return app, db, rdb, nil
}
