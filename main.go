package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ecommerce-backend/handlers"
	"ecommerce-backend/internal/auth"
	"ecommerce-backend/internal/cart"
	"ecommerce-backend/internal/consul"
	"ecommerce-backend/internal/notify"
	"ecommerce-backend/internal/orders"
	"ecommerce-backend/internal/payment"
	"ecommerce-backend/internal/products"
	"ecommerce-backend/internal/stores/kafka"
	"ecommerce-backend/internal/stores/postgres"
	"ecommerce-backend/internal/users"
	"ecommerce-backend/pkg/logkey"
	"ecommerce-backend/pkg/metrics"

	"github.com/joho/godotenv"
)

const serviceName = "ecommerce-backend"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("startup failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment")
	}

	db, err := postgres.OpenDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := postgres.RunMigrations(db, migrationsDir); err != nil {
		return err
	}

	keys, err := loadAuthKeys()
	if err != nil {
		return err
	}

	uConf, err := users.NewConf(db)
	if err != nil {
		return err
	}
	pConf, err := products.NewConf(db)
	if err != nil {
		return err
	}
	ctConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	oConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}

	gateway, err := payment.NewStripeGateway(os.Getenv("STRIPE_TEST_KEY"))
	if err != nil {
		return err
	}
	reconciler, err := payment.NewReconciler(oConf, gateway, os.Getenv("PAYMENT_CURRENCY"))
	if err != nil {
		return err
	}

	brokers := splitBrokers(os.Getenv("KAFKA_BROKERS"))
	var kConf *kafka.Conf
	if len(brokers) > 0 {
		kConf, err = kafka.NewConf(brokers)
		if err != nil {
			return err
		}
		defer kConf.Close()
	} else {
		slog.Warn("KAFKA_BROKERS not set, notification events disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(brokers) > 0 {
		sender, err := notify.NewSMTPSenderFromEnv()
		if err != nil {
			return err
		}
		workers, _ := strconv.Atoi(os.Getenv("NOTIFY_WORKERS"))
		worker, err := notify.NewWorker(brokers, sender, workers)
		if err != nil {
			return err
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("notification worker stopped", slog.String(logkey.ERROR, err.Error()))
			}
		}()
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid HTTP_PORT %q", port)
	}

	sm := metrics.NewServerMetrics("api")
	h := handlers.NewHandler(uConf, pConf, ctConf, oConf, reconciler, kConf, keys)
	api := handlers.API(keys, sm, h)

	if client, err := consul.NewClient(); err != nil {
		slog.Warn("consul client unavailable", slog.String(logkey.ERROR, err.Error()))
	} else {
		host := os.Getenv("SERVICE_HOST")
		if host == "" {
			host = "localhost"
		}
		serviceID := serviceName + "-" + port
		if err := consul.RegisterService(client, serviceID, serviceName, host, portNum); err != nil {
			slog.Warn("consul registration failed", slog.String(logkey.ERROR, err.Error()))
		} else {
			defer func() {
				if err := consul.DeregisterService(client, serviceID); err != nil {
					slog.Warn("consul deregistration failed", slog.String(logkey.ERROR, err.Error()))
				}
			}()
		}
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      api,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func loadAuthKeys() (*auth.Keys, error) {
	privatePath := os.Getenv("JWT_PRIVATE_KEY_FILE")
	publicPath := os.Getenv("JWT_PUBLIC_KEY_FILE")
	if privatePath == "" || publicPath == "" {
		return nil, fmt.Errorf("JWT_PRIVATE_KEY_FILE and JWT_PUBLIC_KEY_FILE must be set")
	}
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	return auth.NewKeys(privatePEM, publicPEM)
}

func splitBrokers(csv string) []string {
	var out []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
