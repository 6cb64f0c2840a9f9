package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/config"
	"github.com/bitfantasy/nimo-oee/internal/middleware"
	"github.com/bitfantasy/nimo-oee/internal/oee/generator"
	"github.com/bitfantasy/nimo-oee/internal/oee/handler"
	"github.com/bitfantasy/nimo-oee/internal/oee/repository"
	"github.com/bitfantasy/nimo-oee/internal/oee/service"
	"github.com/bitfantasy/nimo-oee/internal/oee/sse"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
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
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-oee service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("store", cfg.Store.Driver),
	)

	ctx := context.Background()

	// 数据存储
	store, err := initStore(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("Failed to init store", zap.Error(err))
	}
	if err := seedIfEmpty(ctx, store, cfg.Store); err != nil {
		zapLogger.Fatal("Failed to seed store", zap.Error(err))
	}

	// Redis 看板缓存
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = initRedis(cfg.Redis)
		if err := rdb.Ping(ctx).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, dashboard cache disabled", zap.Error(err))
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// MinIO 图片存储，未配置时只能登记图片地址
	var images service.ImageStorage
	minioStorage, err := service.NewMinioImageStorage(cfg.MinIO)
	if err != nil {
		zapLogger.Warn("MinIO init failed, image upload disabled", zap.Error(err))
	} else if minioStorage != nil {
		if err := minioStorage.EnsureBucket(ctx); err != nil {
			zapLogger.Warn("MinIO bucket check failed, image upload disabled", zap.Error(err))
		} else {
			images = minioStorage
		}
	}

	hub := sse.NewHub(zapLogger)

	services, err := service.NewServices(store, rdb, images, hub, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init services", zap.Error(err))
	}
	handlers := handler.NewHandlers(services, hub, zapLogger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events"})))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
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

// initStore memory 为默认，postgres 需要数据库配置
func initStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return repository.NewMemoryStore(), nil
	case "postgres":
		db, err := initDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		store := repository.NewGormStore(db)
		if err := store.AutoMigrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate tables: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
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

// seedIfEmpty 首次启动写入主数据与模拟记录
func seedIfEmpty(ctx context.Context, store repository.Store, cfg config.StoreConfig) error {
	empty, err := store.Empty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	snap, err := generator.Seed(generator.New(rand.New(rand.NewSource(seed))), cfg.SeedStart, cfg.SeedEnd)
	if err != nil {
		return err
	}
	return store.Seed(ctx, snap)
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	handler.RegisterRoutes(r.Group("/api/v1"), h, cfg.JWT.Secret)
}
