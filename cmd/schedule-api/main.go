package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/hokieplan/schedule-api/api/swagger"
	"github.com/hokieplan/schedule-api/internal/engine"
	"github.com/hokieplan/schedule-api/internal/handler"
	internalmiddleware "github.com/hokieplan/schedule-api/internal/middleware"
	"github.com/hokieplan/schedule-api/internal/oracle"
	"github.com/hokieplan/schedule-api/internal/repository"
	"github.com/hokieplan/schedule-api/internal/service"
	"github.com/hokieplan/schedule-api/internal/worker"
	"github.com/hokieplan/schedule-api/pkg/cache"
	"github.com/hokieplan/schedule-api/pkg/config"
	"github.com/hokieplan/schedule-api/pkg/database"
	"github.com/hokieplan/schedule-api/pkg/export"
	"github.com/hokieplan/schedule-api/pkg/logger"
	corsmiddleware "github.com/hokieplan/schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hokieplan/schedule-api/pkg/middleware/requestid"
	"github.com/hokieplan/schedule-api/pkg/storage"
)

// @title Schedule Synthesis API
// @version 1.0.0
// @description Assigns students one meeting section per required course with no time conflicts.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		redisClient = nil
	}

	requestRepo := repository.NewRequestRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	metricsSvc := service.NewMetricsService()
	catalogCache := service.NewCatalogCache(redisClient, cfg.Catalog.CacheTTL, logr)
	costSvc := service.NewCostService(usageRepo, export.NewCSVExporter(), logr)

	selector := engine.NewSelector(logr, engine.GeneticParams{
		PopulationSize: cfg.Engine.PopulationSize,
		Generations:    cfg.Engine.Generations,
		MutationRate:   cfg.Engine.MutationRate,
		TournamentSize: cfg.Engine.TournamentSize,
	})

	guard := oracle.NewQuotaGuard(len(cfg.Oracle.APIKeys))
	oracleClient := oracle.NewHTTPClient(cfg.Oracle.BaseURL, cfg.Oracle.Timeout, logr)
	adapter := oracle.NewAdapter(oracleClient, guard, oracle.AdapterConfig{
		Keys:           cfg.Oracle.APIKeys,
		Model:          cfg.Oracle.Model,
		FallbackModels: cfg.Oracle.FallbackModels,
		MaxRetries:     cfg.Oracle.MaxRetries,
		Timeout:        cfg.Oracle.Timeout,
	}, costSvc, logr)

	files, err := storage.NewLocalStorage(cfg.Downloads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init download storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Downloads.SignedURLSecret, cfg.Downloads.SignedURLTTL)

	eventLog := service.NewEventLog(0)
	scheduleSvc := service.NewScheduleService(
		requestRepo, selector, adapter, catalogCache, metricsSvc,
		export.NewPDFExporter(), files, signer,
		eventLog, cfg.APIPrefix, logr,
	)
	authSvc := service.NewAuthService(service.AuthConfig{
		AdminEmail:        cfg.Admin.Email,
		AdminPasswordHash: cfg.Admin.PasswordHash,
		Secret:            cfg.JWT.Secret,
		Expiration:        cfg.JWT.Expiration,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduleSvc.StartJobs(ctx)
	defer scheduleSvc.StopJobs()

	requestWorker := worker.New(scheduleSvc, cfg.Worker.PollInterval, logr)
	requestWorker.Start(ctx)
	defer requestWorker.Stop()

	validate := validator.New()
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, validate)
	adminHandler := handler.NewAdminHandler(scheduleSvc, costSvc, eventLog)
	authHandler := handler.NewAuthHandler(authSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		api.POST("/schedule-requests", scheduleHandler.Submit)
		api.POST("/schedule-requests/:id/sections", scheduleHandler.AttachSections)
		api.GET("/schedule-requests/:id", scheduleHandler.Get)
		api.GET("/schedule-requests/:id/download", scheduleHandler.Download)
		api.GET("/downloads", scheduleHandler.ServeDownload)
		api.GET("/waitlist", scheduleHandler.Waitlist)

		admin := api.Group("/admin", internalmiddleware.JWT(authSvc))
		{
			admin.GET("/status", adminHandler.Status)
			admin.GET("/events", adminHandler.Events)
			admin.GET("/costs", adminHandler.CostSummary)
			admin.GET("/costs/requests/:id", adminHandler.RequestUsage)
			admin.GET("/costs/export", adminHandler.ExportCosts)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
