package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/technician-availability-api/internal/handler"
	"github.com/noah-isme/technician-availability-api/internal/middleware"
	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/service"
	"github.com/noah-isme/technician-availability-api/pkg/config"
	"github.com/noah-isme/technician-availability-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/technician-availability-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/technician-availability-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth         *service.AuthService
	technicians  *service.TechnicianService
	weekly       *service.WeeklyScheduleService
	exceptions   *service.ExceptionService
	availability *service.AvailabilityService
	calendar     *service.CalendarService
	exports      *service.ExportJobService
	metrics      *service.MetricsService
	audit        middleware.AuditWriter
	db           handler.Pinger
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authenticated := middleware.JWT(deps.auth)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminOrSelf := middleware.AdminOrSelf()
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.audit, logr, action, resource)
	}

	authHandler := handler.NewAuthHandler(deps.auth)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authenticated, authHandler.Logout)
	authGroup.GET("/me", authenticated, authHandler.Me)

	secured := api.Group("", authenticated)
	secured.GET("/metrics/summary", adminOnly, metricsHandler.Summary)

	technicianHandler := handler.NewTechnicianHandler(deps.technicians)
	secured.GET("/technicians", adminOnly, technicianHandler.List)
	secured.POST("/technicians", adminOnly, audit(models.AuditActionTechnicianCreate, "technician"), technicianHandler.Create)
	secured.GET("/technicians/:id", adminOrSelf, technicianHandler.Get)
	secured.PUT("/technicians/:id", adminOnly, audit(models.AuditActionTechnicianUpdate, "technician"), technicianHandler.Update)
	secured.DELETE("/technicians/:id", adminOnly, audit(models.AuditActionTechnicianDelete, "technician"), technicianHandler.Delete)

	scheduleHandler := handler.NewScheduleHandler(deps.weekly, deps.exceptions)
	technician := secured.Group("/technicians/:id")
	technician.GET("/weekly-schedule", adminOrSelf, scheduleHandler.GetWeekly)
	technician.PUT("/weekly-schedule", adminOrSelf, audit(models.AuditActionWeeklyReplace, "weekly_schedule"), scheduleHandler.ReplaceWeekly)
	technician.GET("/exceptions", adminOrSelf, scheduleHandler.ListExceptions)
	technician.GET("/exceptions/groups", adminOrSelf, scheduleHandler.ListExceptionGroups)
	technician.POST("/exceptions", adminOrSelf, audit(models.AuditActionExceptionCreate, "schedule_exception"), scheduleHandler.CreateException)
	technician.PUT("/exceptions/groups", adminOrSelf, audit(models.AuditActionExceptionUpdate, "schedule_exception"), scheduleHandler.UpdateExceptionGroup)
	technician.DELETE("/exceptions", adminOrSelf, audit(models.AuditActionExceptionDelete, "schedule_exception"), scheduleHandler.DeleteExceptions)
	technician.DELETE("/exceptions/:exceptionId", adminOrSelf, audit(models.AuditActionExceptionDelete, "schedule_exception"), scheduleHandler.DeleteException)

	availabilityHandler := handler.NewAvailabilityHandler(deps.availability, deps.calendar)
	feedLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.CalendarRPS, cfg.RateLimit.CalendarBurst, deps.metrics)
	technician.GET("/availability", availabilityHandler.Day)
	technician.GET("/availability/range", availabilityHandler.Range)

	feed := api.Group("/technicians/:id", middleware.JWT(deps.auth, middleware.AllowQueryToken("access_token")))
	feed.GET("/calendar.ics", feedLimiter.Handler(), availabilityHandler.Calendar)

	if deps.exports != nil {
		exportHandler := handler.NewExportHandler(deps.exports)
		technician.POST("/exports", adminOrSelf, exportHandler.Create)
		secured.GET("/exports/:id", exportHandler.Status)
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	return r
}
