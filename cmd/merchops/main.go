package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/harborline/merchops/internal/config"
	"github.com/harborline/merchops/internal/middleware"
	"github.com/harborline/merchops/internal/recon/entity"
	"github.com/harborline/merchops/internal/recon/handler"
	"github.com/harborline/merchops/internal/recon/repository"
	"github.com/harborline/merchops/internal/recon/service"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting merchops service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.Vendor{},
		&entity.VendorAlias{},
		&entity.Projection{},
		&entity.ProjectionHistory{},
		&entity.ExpiredProjection{},
		&entity.IncomingPO{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	redisClient := initRedis(cfg.Redis)
	locker := service.NewRedisLocker(redislock.New(redisClient))

	minioClient, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		zapLogger.Fatal("Failed to init MinIO client", zap.Error(err))
	}

	repos := repository.NewRepositories(db)

	resolver := service.NewVendorResolver(repos.Vendor)
	extractor := service.NewCollectionExtractor(cfg.Recon.KnownCollections)

	vendorSvc := service.NewVendorService(repos.Vendor)
	archivalSvc := service.NewArchivalService(repos.Projection, zapLogger)
	matchingSvc := service.NewMatchingService(
		repos.Projection, repos.IncomingPO, resolver, extractor, locker, zapLogger,
		cfg.Recon.MatchBatchSize, cfg.Recon.VarianceThreshold,
	)
	lifecycleSvc := service.NewLifecycleService(
		repos.Projection, repos.Expired, repos.IncomingPO, locker, zapLogger,
		cfg.Recon.RegularExpireDays, cfg.Recon.MTOExpireDays,
	)
	importSvc := service.NewImportService(repos.Projection, archivalSvc, minioClient, locker, cfg.MinIO.Bucket, zapLogger)
	reportingSvc := service.NewReportingService(db)

	handlers := handler.NewHandlers(
		vendorSvc, lifecycleSvc, matchingSvc, importSvc, archivalSvc, reportingSvc,
		repos.Projection, repos.History, repos.Expired,
	)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	if cfg.Recon.SweepEnabled {
		go runSweepLoop(sweepCtx, lifecycleSvc, cfg.Recon.SweepInterval, zapLogger)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	api := r.Group("/api/v1/recon")
	api.Use(middleware.JWTAuth(cfg.JWT.Secret))

	// Mutating actions need the operator role; reads only a valid token.
	ops := api.Group("", middleware.RequireRole("operator"))

	// Vendor master data
	api.GET("/vendors", h.Vendor.ListVendors)
	ops.POST("/vendors", h.Vendor.CreateVendor)
	api.GET("/vendors/:id", h.Vendor.GetVendor)
	ops.PUT("/vendors/:id", h.Vendor.UpdateVendor)
	ops.POST("/vendors/:id/aliases", h.Vendor.AddAlias)
	ops.DELETE("/vendors/:id/aliases/:aliasId", h.Vendor.RemoveAlias)

	// Projection import and archive
	ops.POST("/vendors/:id/projections/import", h.Match.ImportProjections)
	ops.POST("/vendors/:id/projections/archive", h.Match.ArchiveVendor)
	api.GET("/vendors/:id/projection-history", h.Projection.ListHistory)

	// Projection state and lifecycle
	api.GET("/projections", h.Projection.ListProjections)
	api.GET("/projections/:id", h.Projection.GetProjection)
	ops.POST("/projections/:id/unmatch", h.Projection.Unmatch)
	ops.POST("/projections/:id/manual-match", h.Projection.ManualMatch)
	ops.POST("/projections/:id/remove", h.Projection.MarkRemoved)
	ops.POST("/lifecycle/expire-sweep", h.Projection.ExpireSweep)

	// Expired review ledger
	api.GET("/expired", h.Projection.ListExpired)
	ops.POST("/expired/:id/restore", h.Projection.Restore)
	ops.POST("/expired/:id/verify", h.Projection.Verify)

	// Matching
	ops.POST("/match/run", h.Match.RunMatch)

	// Reports
	api.GET("/reports/overdue", h.Report.Overdue)
	api.GET("/reports/variance", h.Report.HighVariance)
	api.GET("/reports/mto", h.Report.MTOOutlook)
	api.GET("/reports/summary", h.Report.StatusSummary)
}

// runSweepLoop runs the expiration sweep on a fixed interval until the
// context is cancelled. The sweep's own singleton lock keeps multiple
// instances from racing.
func runSweepLoop(ctx context.Context, lifecycle *service.LifecycleService, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := lifecycle.ExpireSweep(ctx); err != nil {
				logger.Error("Scheduled expiration sweep failed", zap.Error(err))
			}
		}
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
