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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gradebook-api/api/swagger"
	"github.com/noah-isme/gradebook-api/internal/handler"
	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/repository"
	"github.com/noah-isme/gradebook-api/internal/service"
	"github.com/noah-isme/gradebook-api/pkg/cache"
	"github.com/noah-isme/gradebook-api/pkg/config"
	"github.com/noah-isme/gradebook-api/pkg/database"
	"github.com/noah-isme/gradebook-api/pkg/export"
	"github.com/noah-isme/gradebook-api/pkg/logger"
	"github.com/noah-isme/gradebook-api/pkg/storage"
)

// @title Gradebook API
// @version 1.0.0
// @description Grade entry, grade level schemas and grade sheet printing
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

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}

	var redisClient *redis.Client
	if cfg.GradeStore.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, grade cache disabled", zap.Error(err))
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	store, mongoClient, err := newGradeStore(ctx, cfg, db)
	if err != nil {
		logr.Fatal("failed to init grade store", zap.String("backend", cfg.GradeStore.Backend), zap.Error(err))
	}
	if mongoClient != nil {
		defer mongoClient.Disconnect(context.Background()) //nolint:errcheck
		checks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	}
	logr.Info("grade store ready", zap.String("backend", cfg.GradeStore.Backend), zap.Bool("cache", redisClient != nil))

	printStorage, err := storage.NewLocalStorage(cfg.Print.StorageDir)
	if err != nil {
		logr.Fatal("failed to init print storage", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.GradeStore.CacheTTL, logr, redisClient != nil)

	studentRepo := repository.NewStudentRepository(db)
	settingsRepo := repository.NewConfigurationRepository(db)

	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, validate, logr)
	gridSvc := service.NewGradeGridService(store, studentRepo, cacheSvc, cfg.GradeStore.CacheTTL, metrics, validate, logr)
	printSvc := service.NewGradePrintService(
		gridSvc,
		settingsSvc,
		export.NewPDFExporter(cfg.Print.FontPath),
		export.NewCSVExporter(),
		printStorage,
		storage.NewSignedURLSigner(cfg.Print.SignedURLSecret, cfg.Print.SignedURLTTL),
		cfg.APIPrefix,
		metrics,
		validate,
		logr,
	)

	r := newRouter(cfg, logr, metrics, service.NewTokenVerifier(cfg.JWT.Secret), handlers{
		metrics:     handler.NewMetricsHandler(metrics, checks),
		gradeLevels: handler.NewGradeLevelHandler(),
		students:    handler.NewStudentHandler(studentSvc),
		grids:       handler.NewGradeGridHandler(gridSvc, printSvc),
		settings:    handler.NewSettingsHandler(settingsSvc),
	})

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

type gradeGridStore interface {
	Get(ctx context.Context, studentID, academicYear string) (*models.GradeGrid, error)
	Set(ctx context.Context, grid *models.GradeGrid) error
}

// newGradeStore picks the grade grid backend. The mongo client is returned so main can close it.
func newGradeStore(ctx context.Context, cfg *config.Config, db *sqlx.DB) (gradeGridStore, *mongo.Client, error) {
	if cfg.GradeStore.Backend != config.GradeStoreMongo {
		return repository.NewGradeGridRepository(db), nil, nil
	}
	client, mongoDB, err := database.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewGradeGridMongoRepository(mongoDB, cfg.Mongo.Collection), client, nil
}
