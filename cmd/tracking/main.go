package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/kanghoo/kanghoo/internal/pkg/cache"
	"github.com/kanghoo/kanghoo/internal/pkg/config"
	"github.com/kanghoo/kanghoo/internal/pkg/database"
	"github.com/kanghoo/kanghoo/internal/pkg/health"
	"github.com/kanghoo/kanghoo/internal/pkg/logger"
	nsqpkg "github.com/kanghoo/kanghoo/internal/pkg/nsq"
	"github.com/kanghoo/kanghoo/internal/pkg/server"
	"github.com/kanghoo/kanghoo/services/tracking"
	"github.com/kanghoo/kanghoo/services/tracking/consumer"
	"github.com/kanghoo/kanghoo/services/tracking/gateway"
	"github.com/kanghoo/kanghoo/services/tracking/handler"
	"github.com/kanghoo/kanghoo/services/tracking/repository"
	"github.com/kanghoo/kanghoo/services/tracking/usecase"
)

func main() {
	appName := "kanghoo-tracking"
	configs := config.InitConfig(".env")

	// Initialize logger
	appLogger, err := logger.NewZapLogger(logger.Config{
		Level:    configs.Logger.Level,
		FilePath: configs.Logger.FilePath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.SetGlobalLogger(appLogger)
	defer appLogger.Close()

	shutdownMgr := server.NewShutdownManager(appLogger)

	// Initialize Redis (optional; memory-only when unset)
	var redisClient *database.RedisClient
	if configs.Redis.Host != "" {
		redisClient, err = database.NewRedisClient(configs.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", logger.Err(err))
		}
		shutdownMgr.Register(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	// Initialize repositories; Redis keeps current locations across restarts
	memRepo := repository.NewMemoryRepository()
	trackingRepo := memRepo
	if redisClient != nil {
		trackingRepo = repository.NewRedisRepository(redisClient, memRepo)
	}

	// Location history store: Postgres when enabled, bounded memory otherwise
	var historyRepo tracking.HistoryRepo
	if configs.Database.Enabled {
		db, err := database.NewPostgresDB(configs.Database)
		if err != nil {
			logger.Fatal("Failed to connect to Postgres", logger.Err(err))
		}
		shutdownMgr.Register(func(ctx context.Context) error {
			return db.Close()
		})
		historyRepo = repository.NewHistoryRepository(db)
	} else {
		historyRepo = repository.NewMemoryHistoryRepository(memRepo)
	}

	// Initialize NSQ gateway (optional)
	var trackingGW tracking.TrackingGW
	if configs.NSQ.Address != "" {
		producer, err := nsqpkg.NewProducer(configs.NSQ.Address)
		if err != nil {
			logger.Fatal("Failed to connect to NSQ", logger.Err(err))
		}
		shutdownMgr.Register(func(ctx context.Context) error {
			producer.Stop()
			return nil
		})
		trackingGW = gateway.NewTrackingGW(producer)
	}

	// Initialize usecase and its stale-location sweeper
	trackingUC := usecase.NewTrackingUC(configs, trackingRepo, historyRepo, trackingGW)
	trackingUC.StartSweeper(time.Duration(configs.Tracking.SweepIntervalSeconds) * time.Second)
	shutdownMgr.Register(func(ctx context.Context) error {
		trackingUC.Stop()
		return nil
	})

	// Initialize cache manager for API consumers
	var durable cache.DurableStore
	if redisClient != nil {
		durable = cache.NewRedisStore(redisClient)
	}
	cacheManager := cache.NewManager(cache.Config{
		MaxItems:      configs.Cache.MaxItems,
		DefaultTTL:    time.Duration(configs.Cache.DefaultTTLSeconds) * time.Second,
		SweepInterval: time.Duration(configs.Cache.SweepIntervalSeconds) * time.Second,
		Durable:       durable,
	})
	shutdownMgr.Register(func(ctx context.Context) error {
		cacheManager.Close()
		return nil
	})

	// Subscribe to the tracking topics to keep the cached views warm
	if configs.NSQ.Address != "" {
		trackingConsumer := consumer.NewTrackingConsumer(cacheManager)
		if err := trackingConsumer.Start(configs.NSQ); err != nil {
			logger.Fatal("Failed to start tracking consumer", logger.Err(err))
		}
		shutdownMgr.Register(func(ctx context.Context) error {
			trackingConsumer.Stop()
			return nil
		})
	}

	// Initialize Echo router
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	health.RegisterHealthEndpoints(e, appName)

	trackingHandler := handler.NewTrackingHandler(trackingUC)
	trackingHandler.RegisterRoutes(e)

	cacheHandler := handler.NewCacheHandler(cacheManager)
	cacheHandler.RegisterRoutes(e)

	// Start server and block until shutdown
	srv := server.NewGracefulServer(e, appLogger, configs.Server.Port,
		time.Duration(configs.Server.ShutdownTimeout)*time.Second)
	if err := srv.Start(); err != nil {
		logger.Error("Server exited with error", logger.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = shutdownMgr.Shutdown(shutdownCtx)
}
