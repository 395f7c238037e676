// Package main provides the main entry point for the LeadFunnel CRM service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/mkamali/leadfunnel/app/handlers"
	"github.com/mkamali/leadfunnel/app/middleware"
	"github.com/mkamali/leadfunnel/app/router"
	"github.com/mkamali/leadfunnel/app/services"
	businessflow "github.com/mkamali/leadfunnel/business_flow"
	"github.com/mkamali/leadfunnel/config"
	"github.com/mkamali/leadfunnel/models"
	"github.com/mkamali/leadfunnel/repository"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting LeadFunnel application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Route the standard logger through rotating files when configured
	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging directs the standard logger to stdout, a rotating file, or both
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" || cfg.FilePath == "" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	switch cfg.Output {
	case "file":
		log.SetOutput(rotator)
	case "both":
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	// TranslateError maps driver errors onto gorm sentinels, which the
	// repositories rely on to detect foreign key violations.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(
			&models.Brand{},
			&models.Funnel{},
			&models.Stage{},
			&models.Lead{},
			&models.StageHistory{},
			&models.Activity{},
			&models.CustomLabel{},
			&models.LeadLabel{},
			&models.ScriptTemplate{},
		); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Println("Database schema migrated")
	}

	return db, nil
}

// initializeEventPublisher connects to Redis and returns a publisher for
// lead movement events. Returns a no-op publisher when events are disabled.
func initializeEventPublisher(cfg config.EventsConfig) (services.EventPublisher, func(), error) {
	if !cfg.Enabled {
		return services.NopEventPublisher{}, func() {}, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisAddr, cfg.RedisDB)
	closeFn := func() {
		if err := rc.Close(); err != nil {
			log.Printf("Error closing redis client: %v", err)
		}
	}
	return services.NewRedisEventPublisher(rc, cfg.Channel), closeFn, nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Initialize event publishing
	publisher, closePublisher, err := initializeEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, closePublisher)

	// Initialize repositories
	brandRepo := repository.NewBrandRepository(db)
	funnelRepo := repository.NewFunnelRepository(db)
	stageRepo := repository.NewStageRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	historyRepo := repository.NewStageHistoryRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	labelRepo := repository.NewCustomLabelRepository(db)
	scriptRepo := repository.NewScriptTemplateRepository(db)
	txRunner := repository.NewGormTxRunner(db)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	brandFlow := businessflow.NewBrandFlow(brandRepo)
	funnelFlow := businessflow.NewFunnelFlow(funnelRepo, brandRepo)
	stageFlow := businessflow.NewStageFlow(stageRepo, funnelRepo)
	leadFlow := businessflow.NewLeadFlow(
		leadRepo,
		stageRepo,
		funnelRepo,
		brandRepo,
		historyRepo,
		activityRepo,
		txRunner,
		publisher,
		cfg.Sweep.StaleAfter,
	)
	activityFlow := businessflow.NewActivityFlow(activityRepo, leadRepo)
	labelFlow := businessflow.NewLabelFlow(labelRepo, leadRepo, funnelRepo)
	scriptFlow := businessflow.NewScriptFlow(scriptRepo, stageRepo, funnelRepo)
	analyticsFlow := businessflow.NewAnalyticsFlow(leadRepo, stageRepo, funnelRepo, historyRepo, activityRepo)

	// Initialize handlers
	routeHandlers := router.Handlers{
		Brand:     handlers.NewBrandHandler(brandFlow),
		Funnel:    handlers.NewFunnelHandler(funnelFlow),
		Stage:     handlers.NewStageHandler(stageFlow),
		Lead:      handlers.NewLeadHandler(leadFlow),
		Activity:  handlers.NewActivityHandler(activityFlow),
		Label:     handlers.NewLabelHandler(labelFlow),
		Script:    handlers.NewScriptHandler(scriptFlow),
		Analytics: handlers.NewAnalyticsHandler(analyticsFlow),
	}

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(routeHandlers, authMiddleware, cfg.Security.AllowedOrigins)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
