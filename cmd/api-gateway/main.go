package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/technician-availability-api/api/swagger"
	"github.com/noah-isme/technician-availability-api/internal/availability"
	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/repository"
	"github.com/noah-isme/technician-availability-api/internal/service"
	"github.com/noah-isme/technician-availability-api/migrations"
	"github.com/noah-isme/technician-availability-api/pkg/cache"
	"github.com/noah-isme/technician-availability-api/pkg/config"
	"github.com/noah-isme/technician-availability-api/pkg/database"
	"github.com/noah-isme/technician-availability-api/pkg/jobs"
	"github.com/noah-isme/technician-availability-api/pkg/logger"
	"github.com/noah-isme/technician-availability-api/pkg/storage"
	"github.com/noah-isme/technician-availability-api/pkg/validation"
)

// @title Technician Availability API
// @version 1.0.0
// @description Weekly schedules, dated exceptions and resolved availability for field technicians
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, db, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, availability cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validation.New()
	validation.ConfigureBinding()
	metrics := service.NewMetricsService()

	technicianRepo := repository.NewTechnicianRepository(db)
	userRepo := repository.NewUserRepository(db)
	weeklyRepo := repository.NewWeeklyBlockRepository(db)
	exceptionRepo := repository.NewScheduleExceptionRepository(db)
	exportRepo := repository.NewExportJobRepository(db)
	txManager := repository.NewTxManager(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Availability.CacheTTL, logr, cfg.Availability.CacheEnabled && redisClient != nil)
	resolver := availability.NewResolver(weeklyRepo, exceptionRepo)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	technicianSvc := service.NewTechnicianService(technicianRepo, userRepo, validate, logr)
	weeklySvc := service.NewWeeklyScheduleService(technicianRepo, weeklyRepo, txManager, cacheSvc,
		models.WeeklyBlockOverlapPolicy(cfg.Availability.WeeklyOverlapPolicy), validate, logr)
	exceptionSvc := service.NewExceptionService(technicianRepo, exceptionRepo, txManager, cacheSvc, metrics, validate, logr)
	availabilitySvc := service.NewAvailabilityService(resolver, cacheSvc, metrics, service.AvailabilityServiceConfig{
		MaxRangeDays: cfg.Availability.MaxRangeDays,
		CacheTTL:     cfg.Availability.CacheTTL,
	}, logr)
	calendarSvc := service.NewCalendarService(technicianRepo, availabilitySvc, exceptionRepo, service.CalendarServiceConfig{
		ProductID: cfg.Calendar.ProductID,
		Timezone:  cfg.Calendar.Timezone,
	}, logr)

	var (
		exportJobSvc *service.ExportJobService
		exportQueue  *jobs.Queue
	)
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(technicianRepo, availabilitySvc, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, nil, nil)
		worker := service.NewExportWorker(exportRepo, exportSvc, metrics, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("availability-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		exportJobSvc = service.NewExportJobService(exportRepo, technicianRepo, availabilitySvc, exportQueue, exportSvc, logr,
			service.ExportJobServiceConfig{ResultTTL: cfg.Exports.SignedURLTTL})
		if n := exportJobSvc.RecoverPendingJobs(ctx); n > 0 {
			logr.Info("requeued pending export jobs", zap.Int("count", n))
		}
	}

	var maintenance *service.MaintenanceService
	if cfg.Maintenance.Enabled {
		var cleaner interface{ CleanupExpired(context.Context) int }
		if exportJobSvc != nil {
			cleaner = exportJobSvc
		}
		maintenance = service.NewMaintenanceService(exceptionRepo, cleaner, metrics, service.MaintenanceConfig{
			ExceptionRetentionDays: cfg.Maintenance.ExceptionRetentionDays,
			PruneSchedule:          cfg.Maintenance.PruneSchedule,
			ExportCleanupSchedule:  cfg.Maintenance.ExportCleanupSchedule,
		}, logr, service.WithSessionPruner(userRepo, cfg.JWT.RefreshExpiration))
		maintenance.Start(ctx)
	}

	router := newRouter(cfg, logr, routerDeps{
		auth:         authSvc,
		technicians:  technicianSvc,
		weekly:       weeklySvc,
		exceptions:   exceptionSvc,
		availability: availabilitySvc,
		calendar:     calendarSvc,
		exports:      exportJobSvc,
		metrics:      metrics,
		audit:        userRepo,
		db:           db,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	if maintenance != nil {
		maintenance.Stop()
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}
