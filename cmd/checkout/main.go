package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pujakriti/checkout-service/internal/clients"
	"github.com/pujakriti/checkout-service/internal/config"
	"github.com/pujakriti/checkout-service/internal/events"
	"github.com/pujakriti/checkout-service/internal/gateway"
	"github.com/pujakriti/checkout-service/internal/handlers"
	"github.com/pujakriti/checkout-service/internal/repository"
	"github.com/pujakriti/checkout-service/internal/server"
	"github.com/pujakriti/checkout-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logger := logrus.WithField("service", "checkout-service")

	logger.WithField("port", cfg.Server.Port).Info("Starting checkout-service")

	db, err := initDatabase(cfg)
	if err != nil {
		logger.WithField("error", err.Error()).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := repository.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		logger.WithField("error", err.Error()).Fatal("Failed to run migrations")
	}

	orderRepo := repository.NewPostgresOrderRepository(db, logger)
	paymentRepo := repository.NewPostgresPaymentRepository(db, logger)
	discountRepo := repository.NewPostgresDiscountRepository(db, logger)
	cartStore := repository.NewRedisCartStore(cfg.Redis, logger)

	notificationClient := clients.NewHTTPNotificationClient(cfg.Notification, logger)

	eventPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
	defer eventPublisher.Close()

	redirectBuilder := gateway.NewBuilder(cfg.Gateway)

	discountService := service.NewDiscountService(discountRepo, logger)
	orderService := service.NewOrderService(
		orderRepo,
		orderRepo,
		cartStore,
		paymentRepo,
		discountRepo,
		discountService,
		eventPublisher,
		logger,
	)
	paymentService := service.NewPaymentService(
		paymentRepo,
		orderRepo,
		orderRepo,
		redirectBuilder,
		cfg.Gateway,
		notificationClient,
		eventPublisher,
		logger,
	)

	h := handlers.NewHandlers(orderService, paymentService, discountService, cfg, logger)

	srv := server.NewServer(cfg, h, logger).HTTPServer()

	go func() {
		logger.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithField("error", err.Error()).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithField("error", err.Error()).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
