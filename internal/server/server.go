// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "zeroai/docs" // swagger docs
	"zeroai/internal/cache"
	"zeroai/internal/classifier"
	"zeroai/internal/config"
	"zeroai/internal/database"
	"zeroai/internal/mediahost"
	"zeroai/internal/middleware"
	"zeroai/internal/models"
	"zeroai/internal/notifications"
	"zeroai/internal/repository"
	"zeroai/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Deps are the already-initialized collaborators the server is built from.
// DB and Mongo are mutually exclusive; Redis and Events may be nil.
type Deps struct {
	DB         *gorm.DB
	Mongo      *mongo.Client
	Redis      *redis.Client
	Posts      repository.PostRepository
	Users      repository.UserRepository
	Classifier classifier.Classifier
	MediaHost  mediahost.Host
	Events     notifications.Publisher
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	mongo          *mongo.Client
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	auth           *middleware.Authenticator
	notifier       *notifications.Notifier
	hub            *notifications.Hub

	ingestionService *service.IngestionService
	postService      *service.PostService
	authService      *service.AuthService
	userService      *service.UserService
}

// NewServer creates a Server from initialized dependencies.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Posts == nil || deps.Users == nil {
		return nil, errors.New("server: post and user repositories are required")
	}
	if deps.Classifier == nil || deps.MediaHost == nil {
		return nil, errors.New("server: classifier and media host are required")
	}

	s := &Server{
		config:         cfg,
		db:             deps.DB,
		mongo:          deps.Mongo,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics(cfg.OTelServiceName),
		auth:           middleware.NewAuthenticator(cfg.JWTSecret),
	}

	events := deps.Events
	if deps.Redis != nil {
		s.notifier = notifications.NewNotifier(deps.Redis)
		s.hub = notifications.NewHub()
		if events == nil {
			events = s.notifier
		}
	}

	timeline := cache.NewTimeline(deps.Redis, cfg.TimelineCacheTTL)
	entities := cache.NewEntities(deps.Redis)
	s.ingestionService = service.NewIngestionService(
		deps.Posts, deps.Users, deps.Classifier, deps.MediaHost,
		timeline, events, service.IngestionOptionsFromConfig(cfg),
	)
	s.postService = service.NewPostService(deps.Posts, deps.Users, timeline, events).WithCache(entities)
	s.authService = service.NewAuthService(deps.Users, cfg.JWTSecret)
	s.userService = service.NewUserService(deps.Users).WithCache(entities)

	return s, nil
}

// NewApp returns a Fiber app sized for image uploads with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "zeroai API",
		BodyLimit: int(s.config.MaxUploadBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: codeForStatus(fe.Code)})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// OpenTelemetry span per request
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        s.config.GlobalRequestsPerMin,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "zeroai Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	window := s.config.RateLimitWindow

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, s.config.AuthRateLimit, window, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, s.config.AuthRateLimit, window, "login"), s.Login)
	auth.Get("/me", s.auth.AuthRequired, s.GetMe)

	// Timeline
	api.Get("/timeline", s.GetTimeline)

	// Post routes. A bearer token, when present, identifies the acting user.
	posts := api.Group("/posts", s.auth.OptionalAuth)
	posts.Post("/", middleware.RateLimit(
		s.redis, s.config.PostRateLimit, window, "create_post"), s.CreatePost)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts.Put("/:id/like", s.ToggleLike)
	posts.Get("/:id", s.GetPost)

	// User routes
	api.Get("/users/:id", s.GetUser)

	// Timeline stream
	api.Get("/ws/timeline", s.auth.OptionalAuth, s.requireUpgrade, s.TimelineStreamHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	switch {
	case s.db != nil:
		checks["database"] = probe(func() error { return database.Ping(ctx, s.db) })
	case s.mongo != nil:
		checks["database"] = probe(func() error { return s.mongo.Ping(ctx, nil) })
	default:
		checks["database"] = "unavailable"
	}
	if checks["database"] != "healthy" {
		healthy = false
	}

	// Redis is optional: the timeline cache and stream degrade without it.
	if s.redis != nil {
		checks["redis"] = probe(func() error { return s.redis.Ping(ctx).Err() })
		if checks["redis"] != "healthy" {
			healthy = false
		}
	} else {
		checks["redis"] = "disabled"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": s.config.OTelServiceName,
		"status":  overall,
		"checks":  checks,
		"time":    time.Now(),
	})
}

func probe(fn func() error) string {
	if err := fn(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// Start wires the timeline hub to Redis and blocks serving HTTP.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.Start(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops HTTP serving and disconnects stream clients. Stores are closed by their owner.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http: %w", err))
		}
	}
	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", s.hub.Name(), err))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
