package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-checkout-service/config"
	"github.com/fekuna/omnipos-checkout-service/internal/events"
	"github.com/fekuna/omnipos-checkout-service/internal/migrations"
	"github.com/fekuna/omnipos-checkout-service/internal/transport/rpc"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
	"github.com/fekuna/omnipos-checkout-service/internal/uow/memory"
	pguow "github.com/fekuna/omnipos-checkout-service/internal/uow/postgres"
	"github.com/fekuna/omnipos-checkout-service/pkg/broker"
	"github.com/fekuna/omnipos-checkout-service/pkg/cache"
	"github.com/fekuna/omnipos-checkout-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-checkout-service/pkg/i18n"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/metrics"

	cartH "github.com/fekuna/omnipos-checkout-service/internal/cart/handler"
	cartUCPkg "github.com/fekuna/omnipos-checkout-service/internal/cart/usecase"

	checkoutH "github.com/fekuna/omnipos-checkout-service/internal/checkout/handler"
	checkoutUCPkg "github.com/fekuna/omnipos-checkout-service/internal/checkout/usecase"

	invH "github.com/fekuna/omnipos-checkout-service/internal/inventory/handler"
	invUCPkg "github.com/fekuna/omnipos-checkout-service/internal/inventory/usecase"

	orderListenerPkg "github.com/fekuna/omnipos-checkout-service/internal/order/listener"
	orderUCPkg "github.com/fekuna/omnipos-checkout-service/internal/order/usecase"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 2.5 Initialize i18n and telemetry
	translator, err := i18n.New()
	if err != nil {
		appLogger.Fatal("Could not load locales", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	shutdownTracing, err := setupTracing(cfg.Tracing)
	if err != nil {
		appLogger.Fatal("Could not set up tracing", zap.Error(err))
	}

	// 3. Open the store
	var (
		manager uow.Manager
		db      *sqlx.DB
	)
	switch cfg.Store.Driver {
	case "memory":
		store := memory.New()
		if cfg.Store.SeedFile != "" {
			if err := loadSeed(store, cfg.Store.SeedFile); err != nil {
				appLogger.Fatal("Could not load seed file", zap.String("path", cfg.Store.SeedFile), zap.Error(err))
			}
		}
		manager = store
		appLogger.Warn("Using in-memory store, data is lost on restart")
	default:
		db, err = postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

		if cfg.Postgres.Migrate {
			if err := migrations.Apply(context.Background(), db); err != nil {
				appLogger.Fatal("Could not apply migrations", zap.Error(err))
			}
		}
		manager = pguow.NewManager(db, cfg.Checkout.LockTimeout)
	}

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.Store.Driver != "memory" {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		appLogger.Warn("Redis unavailable, idempotency keys and inventory locks are disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5. Initialize Kafka
	kafkaProducer := broker.NewProducer(cfg.Kafka.Brokers)
	defer kafkaProducer.Close()

	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.TopicStatusCommand,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Kafka configured", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("status_topic", cfg.Kafka.TopicStatusCommand))

	relay := events.NewRelay(manager, kafkaProducer, events.RelayConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		Topics: events.Topics{
			OrderCreated: cfg.Kafka.TopicOrderCreated,
			OrderUpdated: cfg.Kafka.TopicOrderUpdated,
			LowStock:     cfg.Kafka.TopicLowStock,
		},
	}, checkoutMetrics, appLogger)

	// 6. Initialize UseCases
	checkoutOpts := []checkoutUCPkg.Option{checkoutUCPkg.WithNotifier(relay)}
	if redisClient != nil {
		checkoutOpts = append(checkoutOpts, checkoutUCPkg.WithIdempotency(redisClient))
	}
	checkoutUC := checkoutUCPkg.NewCheckoutUseCase(manager, checkoutMetrics, appLogger, checkoutUCPkg.Config{
		MaxAttempts:     cfg.Checkout.MaxAttempts,
		InitialBackoff:  cfg.Checkout.InitialBackoff,
		MaxBackoff:      cfg.Checkout.MaxBackoff,
		RequestTimeout:  cfg.Checkout.RequestTimeout,
		IdempotencyTTL:  cfg.Checkout.IdempotencyTTL,
		PendingClaimTTL: cfg.Checkout.PendingClaimTTL,
	}, checkoutOpts...)
	orderUC := orderUCPkg.NewOrderUseCase(manager, relay, appLogger)
	cartUC := cartUCPkg.NewCartUseCase(manager, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(manager, redisClient, appLogger)

	// 6.5 Start background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	statusListener := orderListenerPkg.NewStatusListener(kafkaConsumer, orderUC, appLogger)
	go statusListener.Start(ctx)
	go relay.Start(ctx)

	// 7. Initialize Handlers
	errs := rpc.NewErrorMapper(translator)
	checkoutHandler := checkoutH.NewCheckoutHandler(checkoutUC, orderUC, errs, appLogger)
	cartHandler := cartH.NewCartHandler(cartUC, errs, appLogger)
	invHandler := invH.NewInventoryHandler(invUC, errs, appLogger)

	// 8. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			rpc.RecoveryInterceptor(appLogger),
			rpc.LoggingInterceptor(appLogger),
		),
	)

	rpc.RegisterCheckoutServiceServer(grpcServer, checkoutHandler)
	rpc.RegisterCartServiceServer(grpcServer, cartHandler)
	rpc.RegisterInventoryServiceServer(grpcServer, invHandler)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	for _, name := range []string{"", rpc.CheckoutServiceName, rpc.CartServiceName, rpc.InventoryServiceName} {
		healthServer.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}

	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// 9. Start ops HTTP server
	ops := newOpsServer(registry, readiness(db, redisClient))
	go func() {
		appLogger.Info("Starting ops server", zap.String("port", cfg.Server.HTTPPort))
		if err := ops.Start(cfg.Server.HTTPPort); err != nil && !isServerClosed(err) {
			appLogger.Fatal("ops server failed", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("ops server shutdown", zap.Error(err))
	}

	cancel()
	if _, err := relay.Flush(shutdownCtx); err != nil {
		appLogger.Warn("final outbox flush failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		appLogger.Error("tracer shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func loadSeed(store *memory.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return store.LoadSeed(f)
}
