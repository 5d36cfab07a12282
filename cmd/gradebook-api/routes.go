package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/handler"
	"github.com/noah-isme/gradebook-api/internal/middleware"
	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/service"
	"github.com/noah-isme/gradebook-api/pkg/config"
	"github.com/noah-isme/gradebook-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gradebook-api/pkg/middleware/requestid"
)

type handlers struct {
	metrics     *handler.MetricsHandler
	gradeLevels *handler.GradeLevelHandler
	students    *handler.StudentHandler
	grids       *handler.GradeGridHandler
	settings    *handler.SettingsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, verifier middleware.TokenValidator, h handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Download links carry their own signature.
	api.GET("/grades/print/:token", h.grids.Download)

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	admin := middleware.RequireRoles(models.RoleAdmin)

	secured := api.Group("", middleware.JWT(verifier), staff)
	secured.GET("/grade-levels", h.gradeLevels.List)
	secured.GET("/grade-levels/:level/schema", h.gradeLevels.Schema)

	secured.GET("/students", h.students.List)
	secured.GET("/students/:id", h.students.Get)
	secured.PATCH("/students/:id/grade-level", admin, h.students.UpdateGradeLevel)

	grades := secured.Group("/students/:id/grades/:year")
	grades.GET("", h.grids.Load)
	grades.PUT("", h.grids.Save)
	grades.PATCH("/cells", h.grids.SetCell)
	grades.POST("/reset", admin, h.grids.Reset)
	grades.POST("/print", h.grids.Print)

	secured.GET("/settings/print-header", h.settings.GetPrintHeader)
	secured.PUT("/settings/print-header", admin, h.settings.UpdatePrintHeader)

	return r
}
