// Package server contains the HTTP and WebSocket surface of the rental lifecycle API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	_ "github.com/mohammadr7204/nyc-rental-platform-sub001/docs" // swagger docs
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/cache"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/config"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/database"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/effects"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/featureflags"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/fees"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/gateway"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/notifications"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/repository"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/service"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "rental-lifecycle-api"

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// httpMetrics registers the fiber collectors once per process.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = middleware.InitMetrics(serviceName)
	})
	return prom
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	dispatcher     *effects.Dispatcher
	now            func() time.Time

	propertyService    *service.PropertyService
	applicationService *service.ApplicationService
	leaseService       *service.LeaseService
	paymentService     *service.PaymentService
	vendorService      *service.VendorService
	inspectionService  *service.InspectionService
	maintenanceService *service.MaintenanceService
}

// NewServer connects to PostgreSQL and Redis and builds a Server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil redisClient delivers lifecycle events straight to this process's hub.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	policy, err := cfg.FeePolicy()
	if err != nil {
		return nil, err
	}
	calc, err := fees.NewCalculator(policy)
	if err != nil {
		return nil, err
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: httpMetrics(),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		now:            time.Now,
	}

	var publisher notifications.Publisher = server.hub
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		publisher = server.notifier
	}
	payments, screening := gateway.New(gateway.Options{
		PaymentsBaseURL:  cfg.PaymentsBaseURL,
		ScreeningBaseURL: cfg.ScreeningBaseURL,
		APIKey:           cfg.GatewayAPIKey,
		Timeout:          time.Duration(cfg.GatewayTimeoutSeconds) * time.Second,
		RatePerSecond:    cfg.GatewayRatePerSecond,
	})
	server.dispatcher = effects.NewDispatcher(publisher, payments, screening)

	properties := repository.NewPropertyRepository(db)
	leases := repository.NewLeaseRepository(db)
	vendors := repository.NewVendorRepository(db)
	deps := service.Deps{
		Properties:   properties,
		Applications: repository.NewApplicationRepository(db),
		Leases:       leases,
		Payments:     repository.NewPaymentRepository(db),
		Fees:         calc,
		Flags:        server.featureFlags,
		Effects:      server.dispatcher,
		Now:          func() time.Time { return server.now() },
	}

	server.propertyService = service.NewPropertyService(properties)
	server.applicationService = service.NewApplicationService(deps)
	server.leaseService = service.NewLeaseService(deps)
	server.paymentService = service.NewPaymentService(deps)
	server.vendorService = service.NewVendorService(vendors)
	server.inspectionService = service.NewInspectionService(repository.NewInspectionRepository(db), properties)
	server.maintenanceService = service.NewMaintenanceService(
		repository.NewMaintenanceRepository(db), properties, vendors, leases, server.dispatcher)

	return server, nil
}

// LeaseService exposes the lease operations to the scheduler.
func (s *Server) LeaseService() *service.LeaseService {
	return s.leaseService
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(middleware.TracingMiddleware())
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses keep their headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	secret := s.config.JWTSecret
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Provider callbacks authenticate with a body signature rather than a user token.
	webhooks := api.Group("/webhooks", WebhookSignatureRequired(s.config.WebhookSecret))
	webhooks.Post("/screening", s.HandleScreeningWebhook)
	webhooks.Post("/payments", s.HandlePaymentWebhook)

	ws := api.Group("/ws", middleware.WebSocketActorRequired(secret), upgradeRequired)
	ws.Get("/events", s.EventStreamHandler())

	// Public listing
	api.Get("/properties", s.GetProperties)
	api.Get("/properties/:id", s.GetProperty)

	protected := api.Group("", middleware.ActorRequired(secret))
	protected.Get("/feature-flags", s.GetFeatureFlags)

	properties := protected.Group("/properties")
	properties.Post("/", s.CreateProperty)
	properties.Get("/:id/applications", s.GetPropertyApplications)
	properties.Get("/:id/leases", s.GetPropertyLeases)
	properties.Get("/:id/inspections", s.GetPropertyInspections)
	properties.Get("/:id/maintenance", s.GetPropertyMaintenance)
	properties.Put("/:id", s.UpdateProperty)
	properties.Delete("/:id", s.DeleteProperty)

	applications := protected.Group("/applications")
	applications.Post("/", middleware.RateLimit(s.redis, 10, time.Hour, "submit_application"), s.SubmitApplication)
	applications.Get("/me", s.GetMyApplications)
	applications.Patch("/:id/status", s.UpdateApplicationStatus)
	applications.Post("/:id/approve", s.ApproveApplication)
	applications.Post("/:id/reject", s.RejectApplication)
	applications.Post("/:id/withdraw", s.WithdrawApplication)
	applications.Post("/:id/background-check", middleware.RateLimit(s.redis, 5, time.Hour, "background_check"), s.InitiateBackgroundCheck)
	applications.Get("/:id/screening", s.GetApplicationScreening)
	applications.Post("/:id/lease", s.CreateLease)
	applications.Get("/:id", s.GetApplication)

	// /expiring must precede /:id
	leases := protected.Group("/leases")
	leases.Get("/expiring", s.GetExpiringLeases)
	leases.Get("/:id/payments", s.GetLeasePayments)
	leases.Post("/:id/terminate", s.TerminateLease)
	leases.Post("/:id/renew", s.RenewLease)
	leases.Patch("/:id", s.UpdateLease)
	leases.Get("/:id", s.GetLease)

	payments := protected.Group("/payments")
	payments.Post("/quote", s.QuotePayment)
	payments.Post("/", middleware.RateLimit(s.redis, 20, time.Minute, "request_payment"), s.RequestPayment)

	vendors := protected.Group("/vendors")
	vendors.Get("/", s.GetVendors)
	vendors.Post("/", s.CreateVendor)
	vendors.Get("/:id", s.GetVendor)
	vendors.Put("/:id", s.UpdateVendor)

	inspections := protected.Group("/inspections")
	inspections.Post("/", s.ScheduleInspection)
	inspections.Patch("/:id/status", s.TransitionInspection)
	inspections.Get("/:id", s.GetInspection)

	maintenance := protected.Group("/maintenance")
	maintenance.Post("/", s.CreateMaintenanceRequest)
	maintenance.Post("/:id/assign", s.AssignMaintenanceVendor)
	maintenance.Patch("/:id/status", s.TransitionMaintenanceRequest)
	maintenance.Get("/:id", s.GetMaintenanceRequest)

	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Post("/leases/expire", s.ExpireLeases)
}

// LivenessCheck answers liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis are reachable.
// Redis is optional: an unconfigured client reports "disabled" without failing readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": serviceName,
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// errorHandler renders errors that escape a handler. fiber errors keep their status.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return respondError(c, err)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Rental Lifecycle API",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
