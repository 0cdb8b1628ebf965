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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/opscheck/checklist-api/api/swagger"
	"github.com/opscheck/checklist-api/internal/handler"
	"github.com/opscheck/checklist-api/internal/middleware"
	"github.com/opscheck/checklist-api/internal/repository"
	"github.com/opscheck/checklist-api/internal/service"
	"github.com/opscheck/checklist-api/pkg/cache"
	"github.com/opscheck/checklist-api/pkg/config"
	"github.com/opscheck/checklist-api/pkg/database"
	"github.com/opscheck/checklist-api/pkg/jobs"
	"github.com/opscheck/checklist-api/pkg/logger"
	corsmiddleware "github.com/opscheck/checklist-api/pkg/middleware/cors"
	reqidmiddleware "github.com/opscheck/checklist-api/pkg/middleware/requestid"
	"github.com/opscheck/checklist-api/pkg/storage"
)

// @title OpsCheck Checklist API
// @version 0.1.0
// @description Checklist templates, runs, review and exports
// @BasePath /
// @schemes http

const shutdownTimeout = 10 * time.Second

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, review cache disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	// Repositories.
	templateRepo := repository.NewTemplateRepository(db)
	runRepo := repository.NewRunRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsService := service.NewMetricsService()
	notifier := service.NewHTTPNotifier(service.NotifyConfig{URL: cfg.Notify.URL, Timeout: cfg.Notify.Timeout}, logr)
	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	templateService := service.NewTemplateService(templateRepo, nil, logr)
	runService := service.NewRunService(runRepo, templateRepo, userRepo, authService, cacheRepo, notifier, metricsService, nil, logr)
	responseService := service.NewResponseService(responseRepo, runRepo, templateRepo, cacheRepo, nil, logr)
	reviewService := service.NewReviewService(responseRepo, runRepo, templateRepo, cacheRepo, metricsService, cfg.Review.CacheTTL, logr)
	employeeService := service.NewEmployeeService(employeeRepo, nil, logr, cfg.Session.TTL)
	userService := service.NewUserService(userRepo, authService, nil, logr)
	exportService := service.NewExportService(exportRepo, reviewService, store, signer, metricsService, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	}, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exportService.Start(rootCtx)
	defer exportService.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	templateHandler := handler.NewTemplateHandler(templateService)
	runHandler := handler.NewRunHandler(runService, responseService)
	reviewHandler := handler.NewReviewHandler(reviewService)
	employeeHandler := handler.NewEmployeeHandler(employeeService, cfg.Session.CookieName, cfg.Session.Secure)
	userHandler := handler.NewUserHandler(userService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Console auth.
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", middleware.JWT(authService), authHandler.Me)

	// Employee PIN sessions.
	api.POST("/employee-session", employeeHandler.Login)
	api.DELETE("/employee-session", employeeHandler.Logout)
	api.GET("/whoami", employeeHandler.WhoAmI)

	// Template catalog: reads are open to any authenticated principal, writes
	// are privileged console operations.
	api.GET("/templates", templateHandler.List)
	api.GET("/templates/:id", templateHandler.Get)

	catalog := api.Group("", middleware.JWT(authService), middleware.RequirePrivileged())
	catalog.POST("/templates", templateHandler.Create)
	catalog.PATCH("/templates/:id", templateHandler.Update)
	catalog.DELETE("/templates/:id", templateHandler.Delete)
	catalog.POST("/templates/:id/sections", templateHandler.AddSection)
	catalog.DELETE("/sections/:sectionId", templateHandler.DeleteSection)
	catalog.POST("/sections/:sectionId/items", templateHandler.AddItem)
	catalog.DELETE("/items/:itemId", templateHandler.DeleteItem)

	// Run execution: driven from the employee surface.
	api.GET("/runs", runHandler.List)
	api.GET("/runs/:id", runHandler.Get)
	api.POST("/runs", middleware.OptionalEmployeeSession(employeeService, cfg.Session.CookieName), runHandler.Start)
	api.POST("/runs/:id/submit", runHandler.Submit)
	api.PUT("/runs/:id/responses", runHandler.UpsertResponse)
	api.GET("/runs/:id/responses", runHandler.ListResponses)

	// Privileged run transitions.
	privileged := api.Group("", middleware.JWT(authService), middleware.RequirePrivileged())
	privileged.POST("/runs/:id/approve", runHandler.Approve)
	privileged.POST("/runs/:id/reopen", runHandler.Reopen)

	// Review and exports.
	review := api.Group("/review", middleware.JWT(authService), middleware.RequirePrivileged())
	review.GET("/runs", reviewHandler.ListRuns)
	review.GET("/runs/:id", reviewHandler.GetRun)

	exports := api.Group("/exports", middleware.JWT(authService), middleware.RequirePrivileged())
	exports.POST("", exportHandler.Create)
	exports.GET("/:id", exportHandler.Status)
	api.GET("/exports/download", exportHandler.Download)

	// Administration.
	admin := api.Group("/admin", middleware.JWT(authService), middleware.RequirePrivileged())
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Create)
	admin.PUT("/users/:id/role", userHandler.ChangeRole)
	admin.GET("/status", metricsHandler.Status)

	staff := api.Group("/employees", middleware.JWT(authService), middleware.RequirePrivileged())
	staff.GET("", employeeHandler.List)
	staff.GET("/:id", employeeHandler.Get)
	staff.POST("", employeeHandler.Create)
	staff.PATCH("/:id", employeeHandler.Update)
	staff.PUT("/:id/pin", employeeHandler.ResetPIN)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-rootCtx.Done()
		logr.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Warn("server shutdown", zap.Error(err))
		}
	}()

	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
