package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	awspkg "github.com/Bharatkumawat03/pedalWB-sub001/pkg/aws"
	ddb "github.com/Bharatkumawat03/pedalWB-sub001/pkg/dynamodb"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/clients"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/config"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/controllers"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/database"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/kafka"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/routes"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/services"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/common/auth"
	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/common/logger"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/common/middleware"
)

const serviceName = "cart-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}

	// ── Logging (optionally shipped to CloudWatch Logs) ──
	var sink io.Writer
	if cfg.CloudWatchEnabled {
		cwLogs, err := awspkg.NewCloudWatchLogsWriter(ctx, awsCfg, cfg.LogGroup, serviceName)
		if err != nil {
			log.Printf("[cart] CloudWatch Logs init failed: %v", err)
		} else {
			sink = cwLogs
		}
	}
	zapLogger, err := logger.New(cfg.Env, sink)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	metricsClient := awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)

	jwtSecret, err := resolveJWTSecret(ctx, cfg, awsCfg)
	if err != nil {
		zapLogger.Fatal("failed to resolve JWT secret", zap.Error(err))
	}

	// ── Guest cart storage and in-flight guard ──
	var redisClient *redis.Client
	if cfg.GuestStore == config.GuestStoreRedis {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("redis unavailable", zap.Error(err))
		}
		defer redisClient.Close()
	}

	guests, err := newGuestBackend(cfg, awsCfg, redisClient)
	if err != nil {
		zapLogger.Fatal("failed to initialise guest cart store", zap.String("store", cfg.GuestStore), zap.Error(err))
	}

	var guard services.InFlightGuard = services.NewMemoryInFlightGuard()
	if redisClient != nil {
		guard = database.NewRedisInFlightLocker(redisClient, cfg.InFlightTTL, zapLogger)
	}

	// ── Cart events ──
	var publisher services.EventPublisher
	switch cfg.EventSink {
	case config.EventSinkSNS:
		publisher = services.NewSNSEventPublisher(awspkg.NewSNSClient(awsCfg), cfg.SNSTopicARN)
	case config.EventSinkKafka:
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, zapLogger)
		defer producer.Close()
		publisher = producer
	}

	policy := services.DropFailedItems
	if cfg.KeepFailedMergeItems {
		policy = services.KeepFailedItems
	}
	reconciler := services.NewReconciler(zapLogger, publisher, metricsClient, policy)

	accountClient := clients.NewAccountCartClient(cfg.CartAPIURL, cfg.CartAPITimeout)
	controller := controllers.NewCartController(
		guests,
		func(token string) services.AccountCart { return accountClient.WithToken(token) },
		reconciler,
		guard,
		zapLogger,
	)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(zapLogger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(limiterCtx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterCartRoutes(r, controller, auth.NewTokenValidator(jwtSecret), routes.RouteOptions{
		GuestCookieTTL: cfg.GuestCartTTL,
		SecureCookies:  cfg.Env == "production",
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("cart service listening",
			zap.String("port", cfg.Port),
			zap.String("guest_store", cfg.GuestStore),
			zap.String("event_sink", cfg.EventSink),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLogger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown error", zap.Error(err))
	}
	zapLogger.Info("server shutdown complete")
}

func newGuestBackend(cfg config.Config, awsCfg sdkaws.Config, redisClient *redis.Client) (database.GuestBackend, error) {
	switch cfg.GuestStore {
	case config.GuestStoreRedis:
		return database.NewRedisGuestBackend(redisClient, cfg.GuestCartTTL), nil
	case config.GuestStoreDynamoDB:
		client := ddb.NewClientFromConfig(awsCfg, cfg.DynamoEndpoint)
		return database.NewDynamoGuestBackend(client, cfg.DynamoTable, cfg.GuestCartTTL), nil
	case config.GuestStoreFile:
		return database.NewFileGuestBackend(cfg.GuestFileDir)
	case config.GuestStoreMemory:
		return database.NewMemoryGuestBackend(), nil
	}
	return nil, fmt.Errorf("unknown guest store %q", cfg.GuestStore)
}

func resolveJWTSecret(ctx context.Context, cfg config.Config, awsCfg sdkaws.Config) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return awspkg.NewSecretsClient(awsCfg).GetSecret(ctx, cfg.JWTSecretName)
}
