// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/mkamali/leadfunnel/app/dto"
	"github.com/mkamali/leadfunnel/app/handlers"
	"github.com/mkamali/leadfunnel/app/middleware"
	"github.com/mkamali/leadfunnel/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Brand     handlers.BrandHandlerInterface
	Funnel    handlers.FunnelHandlerInterface
	Stage     handlers.StageHandlerInterface
	Lead      handlers.LeadHandlerInterface
	Activity  handlers.ActivityHandlerInterface
	Label     handlers.LabelHandlerInterface
	Script    handlers.ScriptHandlerInterface
	Analytics handlers.AnalyticsHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	handlers       Handlers
	authMiddleware *middleware.AuthMiddleware
	allowedOrigins []string
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(h Handlers, authMiddleware *middleware.AuthMiddleware, allowedOrigins []string) Router {
	// Configure Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "LeadFunnel API",
		ServerHeader: "LeadFunnel",
		ErrorHandler: errorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:            app,
		handlers:       h,
		authMiddleware: authMiddleware,
		allowedOrigins: allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// Prometheus scrape endpoint, outside the API group and rate limiter
	r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting, no auth)
	api.Get("/health", r.healthCheck)

	// Apply general rate limiting to all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        2000,            // Maximum 2000 requests
		Expiration: 1 * time.Minute, // Per minute
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			// Skip rate limiting for health checks
			return c.Path() == "/api/v1/health"
		},
	}))

	// Everything below requires a valid token
	api.Use(r.authMiddleware.Authenticate())

	// Brand endpoints
	api.Post("/brands", r.handlers.Brand.CreateBrand)
	api.Get("/brands", r.handlers.Brand.ListBrands)
	api.Get("/brands/:id", r.handlers.Brand.GetBrand)
	api.Put("/brands/:id", r.handlers.Brand.UpdateBrand)
	api.Delete("/brands/:id", r.handlers.Brand.DeleteBrand)
	api.Get("/brands/:brand_id/funnels", r.handlers.Funnel.ListFunnels)

	// Funnel endpoints
	api.Post("/funnels", r.handlers.Funnel.CreateFunnel)
	api.Get("/funnels/:id", r.handlers.Funnel.GetFunnel)
	api.Put("/funnels/:id", r.handlers.Funnel.UpdateFunnel)
	api.Delete("/funnels/:id", r.handlers.Funnel.DeleteFunnel)
	api.Get("/funnels/:id/stages", r.handlers.Stage.GetCatalog)

	// Stage endpoints
	api.Post("/stages", r.handlers.Stage.CreateStage)
	api.Get("/stages", r.handlers.Stage.ListStages)
	api.Put("/stages/:id", r.handlers.Stage.UpdateStage)
	api.Delete("/stages/:id", r.handlers.Stage.DeleteStage)

	// Lead endpoints
	api.Post("/leads", r.handlers.Lead.CreateLead)
	api.Get("/leads", r.handlers.Lead.ListLeads)
	api.Post("/leads/sweep-stale", r.handlers.Lead.SweepStaleLeads)
	api.Get("/leads/:id", r.handlers.Lead.GetLead)
	api.Put("/leads/:id", r.handlers.Lead.UpdateLead)
	api.Delete("/leads/:id", r.handlers.Lead.DeleteLead)
	api.Post("/leads/:id/move", r.handlers.Lead.MoveLead)
	api.Get("/leads/:id/history", r.handlers.Lead.ListHistory)

	// Activity endpoints
	api.Post("/leads/:id/activities", r.handlers.Activity.CreateActivity)
	api.Get("/leads/:id/activities", r.handlers.Activity.ListActivities)

	// Label endpoints
	api.Post("/labels", r.handlers.Label.CreateLabel)
	api.Get("/labels", r.handlers.Label.ListLabels)
	api.Put("/labels/:id", r.handlers.Label.UpdateLabel)
	api.Delete("/labels/:id", r.handlers.Label.DeleteLabel)
	api.Post("/leads/:id/labels", r.handlers.Label.AttachLabel)
	api.Get("/leads/:id/labels", r.handlers.Label.ListLeadLabels)
	api.Delete("/leads/:id/labels/:labelId", r.handlers.Label.DetachLabel)

	// Script endpoints
	api.Post("/scripts", r.handlers.Script.CreateScript)
	api.Get("/scripts", r.handlers.Script.ListScripts)
	api.Put("/scripts/:id", r.handlers.Script.UpdateScript)
	api.Delete("/scripts/:id", r.handlers.Script.DeleteScript)

	// Analytics endpoints
	api.Get("/funnels/:id/analytics/dual-flow", r.handlers.Analytics.GetDualFlow)
	api.Get("/funnels/:id/analytics/dual-flow/export", r.handlers.Analytics.ExportDualFlow)
	api.Get("/analytics/followup-flow", r.handlers.Analytics.GetFollowUpFlow)
	api.Get("/analytics/velocity", r.handlers.Analytics.GetStageVelocity)
	api.Get("/analytics/bottlenecks", r.handlers.Analytics.GetBottleneckWarnings)
	api.Get("/analytics/bottleneck-overview", r.handlers.Analytics.GetBottleneckAnalytics)
	api.Get("/analytics/heatmap", r.handlers.Analytics.GetHeatmap)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ContentSecurityPolicy:     "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.allowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-Response-Time",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// Skip compression for spreadsheet downloads
			return contains(c.Path(), "/export")
		},
	}))

	// Structured request logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks and metric scrapes
			return c.Path() == "/api/v1/health" || c.Path() == "/metrics"
		},
	}))

	// Prometheus request metrics
	r.app.Use(middleware.Metrics())

	// Response metadata middleware
	r.app.Use(r.responseMetadataMiddleware)

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			// Log panic with request context
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// responseMetadataMiddleware stamps tracing headers on every response
func (r *FiberRouter) responseMetadataMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "LeadFunnel")
	return c.Next()
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "leadfunnel-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Log the error
	log.Printf("Error %d: %v", code, err)

	// Get RequestID for tracing
	requestID := c.Locals("requestid")

	// Return JSON error response
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// Helper functions

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// contains checks if a string contains a substring
func contains(str, substr string) bool {
	return strings.Contains(str, substr)
}
