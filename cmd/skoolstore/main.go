package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"skoolstore/internal/app/auth"
	"skoolstore/internal/app/checkout"
	"skoolstore/internal/app/orders"
	"skoolstore/internal/app/settlement"
	"skoolstore/internal/config"
	admin_handler "skoolstore/internal/handler/http/admin"
	checkout_handler "skoolstore/internal/handler/http/checkout"
	storefront_handler "skoolstore/internal/handler/http/storefront"
	webhook_handler "skoolstore/internal/handler/http/webhook"
	"skoolstore/internal/infrastructure/database"
	"skoolstore/internal/infrastructure/kafka"
	"skoolstore/internal/metrics"
	"skoolstore/internal/payment"
	postgres_grant_repo "skoolstore/internal/repository/grant_repo/postgres"
	postgres_order_repo "skoolstore/internal/repository/order_repo/postgres"
	postgres_outbox_repo "skoolstore/internal/repository/outbox_repo/postgres"
	postgres_product_repo "skoolstore/internal/repository/product_repo/postgres"
	postgres_profile_repo "skoolstore/internal/repository/profile_repo/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("SkoolStore service starting...")

	appLogger.Info("Waiting for database to be available...")
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.DBHost,
		Port:     cfg.DBConfig.DBPort,
		User:     cfg.DBConfig.DBUser,
		Password: cfg.DBConfig.DBPassword,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.DBSSLMode,
	}

	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(dbConfig)
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...", i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	appLogger.Info("Running database migrations...")
	migrateDSN := "postgres://" + cfg.GetDBMigrationConnectionString()
	m, err := migrate.New(cfg.MigrationsPath, migrateDSN)
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	kafkaProducer, err := kafka.NewProducer(cfg.GetKafkaBrokers(), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create Kafka producer", zap.Error(err))
	}
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()
	appLogger.Info("Kafka producer created successfully.")

	storeMetrics := metrics.NewStoreMetrics()

	orderRepository := postgres_order_repo.NewOrderRepository(db, appLogger)
	productRepository := postgres_product_repo.NewProductRepository(db, appLogger)
	grantRepository := postgres_grant_repo.NewGrantRepository(db, appLogger)
	profileRepository := postgres_profile_repo.NewProfileRepository(db, appLogger)
	outboxRepository := postgres_outbox_repo.NewOutboxRepository(db, appLogger)

	paymentGateway := payment.NewHostedClient(payment.ClientConfig{
		BaseURL:       cfg.PaymentAPIURL,
		APIKey:        cfg.PaymentAPIKey,
		WebhookSecret: cfg.PaymentWebhookSecret,
		Timeout:       cfg.PaymentAPITimeout,
	}, appLogger.With(zap.String("component", "PaymentGateway")))

	accessGate := auth.NewGate(profileRepository, appLogger.With(zap.String("component", "AccessGate")))

	checkoutService := checkout.NewCheckoutService(
		orderRepository,
		paymentGateway,
		cfg.CheckoutSuccessURL,
		cfg.CheckoutCancelURL,
		storeMetrics,
		appLogger.With(zap.String("component", "CheckoutService")),
	)
	settlementService := settlement.NewSettlementService(
		orderRepository,
		grantRepository,
		outboxRepository,
		paymentGateway,
		cfg.KafkaOrderCompletedTopic,
		storeMetrics,
		appLogger.With(zap.String("component", "SettlementService")),
	)
	orderService := orders.NewOrderService(
		orderRepository,
		outboxRepository,
		kafkaProducer,
		appLogger.With(zap.String("component", "OrderService")),
	)

	go func() {
		ticker := time.NewTicker(cfg.OutboxPollInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.OutboxPollTimeout)
			if err := orderService.ProcessOutbox(ctx); err != nil {
				appLogger.Error("Error processing outbox", zap.Error(err))
			}
			cancel()
		}
	}()
	appLogger.Info("Transactional Outbox sender started.")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.UserIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	checkout_handler.RegisterRoutes(r, checkoutService, appLogger)
	webhook_handler.RegisterRoutes(r, settlementService, appLogger)
	storefront_handler.RegisterRoutes(r, productRepository, grantRepository, orderService, appLogger)
	admin_handler.RegisterRoutes(r, accessGate, orderService, appLogger)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	serverAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("SkoolStore service started", zap.String("address", serverAddr))

	<-sigChan

	appLogger.Info("Shutting down SkoolStore service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("SkoolStore graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("SkoolStore service stopped.")
}
