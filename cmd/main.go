package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"techfood/internal/config"
	"techfood/internal/database"
	"techfood/internal/logger"
	"techfood/internal/messaging"
	"techfood/internal/services/kitchen"
	"techfood/internal/services/notification"
	"techfood/internal/services/order"
	"techfood/internal/services/payment"
	"techfood/internal/services/tracking"
)

func main() {
	var (
		mode              = flag.String("mode", "", "Service mode (order-service, payment-service, kitchen-worker, tracking-service, notification-subscriber)")
		port              = flag.Int("port", 3000, "HTTP port")
		maxConcurrent     = flag.Int("max-concurrent", 50, "Maximum concurrent order intake")
		workerName        = flag.String("worker-name", "", "Worker name (required for kitchen-worker mode)")
		heartbeatInterval = flag.Int("heartbeat-interval", 30, "Heartbeat interval in seconds")
		cookingTime       = flag.Int("cooking-time", 10, "Simulated cooking time in seconds")
		prefetch          = flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode": *mode,
		"port": *port,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	switch *mode {
	case "order-service":
		if err := runOrderService(ctx, cfg, log, *port, *maxConcurrent, *prefetch); err != nil {
			log.Error("service_failed", "Order service failed", requestID, err, nil)
			os.Exit(1)
		}
	case "payment-service":
		if err := runPaymentService(ctx, cfg, log, *port); err != nil {
			log.Error("service_failed", "Payment service failed", requestID, err, nil)
			os.Exit(1)
		}
	case "kitchen-worker":
		if *workerName == "" {
			log.Error("validation_failed", "worker-name is required for kitchen-worker mode", requestID, nil, nil)
			os.Exit(1)
		}
		if err := runKitchenWorker(ctx, cfg, log, *workerName, *heartbeatInterval, *cookingTime, *prefetch); err != nil {
			log.Error("service_failed", "Kitchen worker failed", requestID, err, nil)
			os.Exit(1)
		}
	case "tracking-service":
		if err := runTrackingService(ctx, cfg, log, *port); err != nil {
			log.Error("service_failed", "Tracking service failed", requestID, err, nil)
			os.Exit(1)
		}
	case "notification-subscriber":
		if err := runNotificationSubscriber(ctx, cfg, log, *prefetch); err != nil {
			log.Error("service_failed", "Notification subscriber failed", requestID, err, nil)
			os.Exit(1)
		}
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runOrderService runs the order command API, the payment confirmation
// subscriber and the outbox relay
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger, port, maxConcurrent, prefetch int) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	publisher := messaging.NewPublisher(conn, log)
	relay := messaging.NewRelay(db, publisher, log)
	go relay.Run(ctx)

	service := order.NewService(order.NewPgStore(db), log, int64(maxConcurrent))

	consumer := messaging.NewConsumer(conn, log, messaging.ConfirmationsQueue, "order-service", prefetch)
	subscriber := order.NewConfirmationSubscriber(consumer, service, log)
	go func() {
		if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error("consumer_failed", "Confirmation subscriber failed", requestID, err, nil)
		}
	}()

	handler := order.NewHandler(service, log)
	return serveHTTP(ctx, log, "Order service", port, handler.SetupRoutes())
}

// runPaymentService runs the payment API and the outbox relay
func runPaymentService(ctx context.Context, cfg *config.Config, log *logger.Logger, port int) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	publisher := messaging.NewPublisher(conn, log)
	relay := messaging.NewRelay(db, publisher, log)
	go relay.Run(ctx)

	gateway := payment.NewHTTPGateway(cfg)
	service := payment.NewService(payment.NewPgStore(db), gateway, log)
	handler := payment.NewHandler(service, log)

	return serveHTTP(ctx, log, "Payment service", port, handler.SetupRoutes())
}

// runKitchenWorker runs a kitchen worker
func runKitchenWorker(ctx context.Context, cfg *config.Config, log *logger.Logger, workerName string, heartbeatInterval, cookingTime, prefetch int) error {
	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	// The worker mutates orders through the order service so status log
	// and outbox writes stay transactional; the running relay in the
	// order service publishes the resulting events.
	orders := order.NewService(order.NewPgStore(db), log, int64(prefetch))
	consumer := messaging.NewConsumer(conn, log, messaging.KitchenQueue, workerName, prefetch)

	worker := kitchen.NewWorker(
		workerName,
		time.Duration(heartbeatInterval)*time.Second,
		time.Duration(cookingTime)*time.Second,
		prefetch,
		db, consumer, orders, log,
	)

	return worker.Start(ctx)
}

// runTrackingService runs the read-only tracking API
func runTrackingService(ctx context.Context, cfg *config.Config, log *logger.Logger, port int) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	cache := tracking.NewRedisCache(cfg.RedisAddr(), "tracking-service")
	service := tracking.NewService(tracking.NewPgStore(db), cache, log)
	handler := tracking.NewHandler(service, log)

	return serveHTTP(ctx, log, "Tracking service", port, handler.SetupRoutes())
}

// runNotificationSubscriber runs the status fanout subscriber
func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	consumer := messaging.NewConsumer(conn, log, messaging.NotificationsQueue, "notification-subscriber", prefetch)
	subscriber := notification.NewSubscriber(consumer, log)

	return subscriber.Start(ctx)
}

func serveHTTP(ctx context.Context, log *logger.Logger, name string, port int, mux *http.ServeMux) error {
	requestID := logger.GenerateRequestID()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Info("service_started", fmt.Sprintf("%s started on port %d", name, port), requestID, map[string]interface{}{
			"port": port,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", "HTTP server failed", requestID, err, nil)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}
