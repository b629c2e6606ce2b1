package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-roster-api/api/swagger"
	"github.com/noah-isme/sma-roster-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-roster-api/internal/middleware"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/service"
	"github.com/noah-isme/sma-roster-api/pkg/cache"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	"github.com/noah-isme/sma-roster-api/pkg/database"
	"github.com/noah-isme/sma-roster-api/pkg/jobs"
	"github.com/noah-isme/sma-roster-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-roster-api/pkg/middleware/requestid"
)

// @title Professor Roster API
// @version 1.0.0
// @description Bulk student import, enrollment synchronization and the professor dashboard.
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

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(rootCtx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(db.DB); err != nil {
			logr.Sugar().Fatalw("failed to apply migrations", "error", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(rootCtx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, running without cache and cross-instance sync", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	var snapshotCache *service.CacheService
	var syncChannel *repository.SyncRepository
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, cache.NewBreaker("redis-cache", cfg.Redis, logr), logr)
		snapshotCache = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
		syncChannel = repository.NewSyncRepository(redisClient, cache.NewBreaker("redis-sync", cfg.Redis, logr), cfg.Sync.ChannelPrefix, logr)
	}

	gateway := service.NewPersistenceGateway(studentRepo, courseRepo, enrollmentRepo, dashboardRepo, snapshotCache, metricsSvc, logr, service.GatewayConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	saveQueue := jobs.NewQueue("dashboard-save", gateway.HandleSaveJob, jobs.QueueConfig{
		Workers:    cfg.Dashboard.SaveWorkers,
		MaxRetries: cfg.Dashboard.SaveRetries,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logr,
		OnExhausted: func(job jobs.Job, err error) {
			logr.Error("dashboard save abandoned", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
		},
	})
	// outlives rootCtx so the shutdown flush still reaches the workers
	saveQueue.Start(context.Background())
	debouncer := jobs.NewDebouncer(saveQueue, cfg.Dashboard.SaveDebounce, func(job jobs.Job, err error) {
		logr.Error("failed to enqueue dashboard save", zap.String("job_id", job.ID), zap.Error(err))
	})
	gateway.UseScheduler(debouncer)

	syncSvc := service.NewSyncService(syncChannel, logr)

	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration)
	projector := service.NewProjectionService(gateway, metricsSvc, logr)
	store := service.NewStateStore(gateway, projector, logr)
	importSvc := service.NewImportService(gateway, store, projector, syncSvc, metricsSvc, logr, service.ImportConfig{
		EmailDomain:       cfg.Import.EmailDomain,
		MaxFileSizeBytes:  cfg.Import.MaxFileSizeBytes,
		AllowedExtensions: cfg.Import.AllowedExtensions,
	})
	rosterSvc := service.NewRosterService(gateway, gateway, store, projector, importSvc, syncSvc, validate, logr)
	subjectSvc := service.NewSubjectService(gateway, store, projector, syncSvc, validate, logr)
	recordSvc := service.NewRecordService(store, syncSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(store, syncSvc, logr)
	exportSvc := service.NewExportService(store, nil, nil, logr)

	readiness := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, syncSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	importHandler := handler.NewImportHandler(importSvc, cfg.Import.MaxFileSizeBytes)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	recordHandler := handler.NewRecordHandler(recordSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.Use(internalmiddleware.JWT(tokenSvc))

	dashboard := api.Group("/dashboard")
	dashboard.GET("", dashboardHandler.State)
	dashboard.POST("/refresh", dashboardHandler.Refresh)
	dashboard.GET("/stream", dashboardHandler.Stream)
	dashboard.POST("/alerts/:id/dismiss", dashboardHandler.DismissAlert)

	subjects := api.Group("/subjects")
	subjects.GET("", subjectHandler.List)
	subjects.POST("", subjectHandler.Create)
	subjects.POST("/:code/archive", subjectHandler.Archive)
	subjects.POST("/:code/recycle", subjectHandler.Recycle)
	subjects.POST("/:code/restore", subjectHandler.Restore)
	subjects.DELETE("/:code", internalmiddleware.Audit(logr, "subject.delete"), subjectHandler.Delete)
	subjects.POST("/:code/imports", internalmiddleware.Audit(logr, "roster.import"), importHandler.Import)
	subjects.POST("/:code/imports/preview", importHandler.Preview)
	subjects.GET("/:code/roster", rosterHandler.Roster)
	subjects.POST("/:code/students", rosterHandler.AddStudent)
	subjects.POST("/:code/students/:studentId/archive", rosterHandler.ArchiveStudent)
	subjects.POST("/:code/students/:studentId/restore", rosterHandler.RestoreStudent)
	subjects.POST("/:code/attendance", recordHandler.Attendance)
	subjects.POST("/:code/assessments", recordHandler.Assessment)
	subjects.GET("/:code/exports/attendance", exportHandler.Attendance)
	subjects.GET("/:code/exports/grades", exportHandler.Grades)

	students := api.Group("/students")
	students.GET("", rosterHandler.Students)
	students.DELETE("/archived", internalmiddleware.Audit(logr, "students.delete_archived"), rosterHandler.DeleteArchived)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	gateway.Flush()
	saveQueue.Stop()
}
