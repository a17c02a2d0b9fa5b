package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/localserve/service-booking/internal/application"
	"github.com/localserve/service-booking/internal/common/auth"
	"github.com/localserve/service-booking/internal/common/database"
	"github.com/localserve/service-booking/internal/common/health"
	"github.com/localserve/service-booking/internal/common/kafka"
	"github.com/localserve/service-booking/internal/common/logger"
	"github.com/localserve/service-booking/internal/common/middleware"
	"github.com/localserve/service-booking/internal/config"
	notificationDomain "github.com/localserve/service-booking/internal/domain/notification"
	"github.com/localserve/service-booking/internal/domain/provider"
	bookingEvents "github.com/localserve/service-booking/internal/events"
	"github.com/localserve/service-booking/internal/handler"
	"github.com/localserve/service-booking/internal/notification"
	"github.com/localserve/service-booking/internal/repository"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:            cfg.DBConfig.Host,
		Port:            cfg.DBConfig.Port,
		User:            cfg.DBConfig.User,
		Password:        cfg.DBConfig.Password,
		DBName:          cfg.DBConfig.DBName,
		SSLMode:         cfg.DBConfig.SSLMode,
		MaxOpenConns:    cfg.DBConfig.MaxOpenConns,
		MaxIdleConns:    cfg.DBConfig.MaxIdleConns,
		ConnMaxLifetime: cfg.DBConfig.ConnMaxLifetime,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := repository.AutoMigrate(db); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager (verification only, tokens are issued elsewhere)
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()
	publisher := bookingEvents.NewKafkaEventPublisher(kafkaProducer, log)

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)
	directory := repository.NewGormProviderDirectory(db)
	var previewDirectory provider.Directory = directory

	// Redis backs the provider cache and the notification queue when configured
	var (
		notifier  notificationDomain.Notifier = notification.NewLogNotifier(log)
		processor *notification.Processor
	)
	if cfg.RedisConfig.Addr != "" {
		cacheClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.CacheDB,
		})
		defer func() { _ = cacheClient.Close() }()
		previewDirectory = repository.NewCachedProviderDirectory(directory, cacheClient, cfg.ProviderCacheTTL, log)

		queueOpt := asynq.RedisClientOpt{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.QueueDB,
		}
		queueClient := asynq.NewClient(queueOpt)
		defer func() { _ = queueClient.Close() }()
		notifier = notification.NewAsynqNotifier(queueClient, log)
		processor = notification.NewProcessor(queueOpt, notificationRepo, cfg.NotificationWorkers, log)
	} else {
		log.Warn("redis not configured, provider cache disabled and notifications only logged")
	}

	// Initialize application services (assignment reads providers uncached, the cache serves previews only)
	engine := application.NewAssignmentEngine(bookingRepo, directory, notifier, publisher, log).
		WithPreviewDirectory(previewDirectory)
	controller := application.NewLifecycleController(bookingRepo, directory, engine, notifier, publisher, log)
	bookingService := application.NewBookingService(bookingRepo, log)

	// Initialize booking request consumer
	groupID := cfg.KafkaConfig.GroupPrefix + "booking-assignment"
	requestConsumer := bookingEvents.NewBookingRequestConsumer(cfg.KafkaConfig.Brokers, groupID, engine, log)
	defer func() { _ = requestConsumer.Close() }()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst).Middleware(log))

	// Register health check routes
	health.NewHandler(db, serviceName).RegisterRoutes(router)

	// Register routes
	handler.NewBookingHandler(controller, bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminBookingHandler(controller, engine, bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down service-booking...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		log.Info("starting booking request consumer", zap.String("group_id", groupID))
		if err := requestConsumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("booking request consumer: %w", err)
		}
		return nil
	})

	if processor != nil {
		g.Go(func() error {
			return processor.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("service-booking stopped with error", zap.Error(err))
		return
	}
	log.Info("service-booking stopped")
}
