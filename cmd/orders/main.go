package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/storefront-orders/internal/analytics"
	"github.com/joao-fontenele/storefront-orders/internal/auth"
	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/logging"
	"github.com/joao-fontenele/storefront-orders/internal/messaging"
	"github.com/joao-fontenele/storefront-orders/internal/notify"
	"github.com/joao-fontenele/storefront-orders/internal/orders"
	"github.com/joao-fontenele/storefront-orders/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	logger := logging.New("orders")

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "orders", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orders", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime metrics", "error", err)
		os.Exit(1)
	}

	orderMetrics, err := telemetry.NewOrderMetrics(otel.Meter("orders"))
	if err != nil {
		logger.Error("failed to create order metrics", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		logger.Error("ADMIN_TOKEN environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(postgresURL, "orders")
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	var notifier orders.Notifier
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer := messaging.NewProducer(brokers, messaging.NotificationsTopic)
		defer func() { _ = producer.Close() }()
		notifier = notify.NewQueueDispatcher(producer, logger)
		logger.Info("notifications dispatched through queue", "brokers", brokers)
	} else {
		emailServiceURL := os.Getenv("EMAIL_SERVICE_URL")
		if emailServiceURL == "" {
			logger.Error("KAFKA_BROKERS or EMAIL_SERVICE_URL is required")
			os.Exit(1)
		}
		notifier = notify.NewEmailSender(emailServiceURL, os.Getenv("OWNER_EMAIL"), httpClient, logger)
		logger.Info("notifications sent directly", "email_service_url", emailServiceURL)
	}

	pricing := domain.Pricing{
		TaxRate:          envDecimal(logger, "TAX_RATE", "0"),
		ShippingFlat:     envDecimal(logger, "SHIPPING_FLAT", "0"),
		FreeShippingOver: envDecimal(logger, "FREE_SHIPPING_OVER", "0"),
	}

	repo := orders.NewOrderRepository(db)
	service := orders.NewService(repo, notifier, logger, orders.WithRecorder(orderMetrics))
	handler := orders.NewHandler(service, pricing, logger)

	analyticsOpts := []analytics.HandlerOption{analytics.WithCacheRecorder(orderMetrics)}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, analytics cache will miss", "error", err, "addr", redisAddr)
		}
		analyticsOpts = append(analyticsOpts, analytics.WithCache(analytics.NewRedisCache(rdb), analytics.DefaultCacheTTL))
	}
	analyticsHandler := analytics.NewHandler(repo, logger, analyticsOpts...)

	api := http.NewServeMux()
	api.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleList))
	api.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandleCreate))
	api.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	api.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleUpdateStatus))
	api.HandleFunc("POST /orders/{id}/archive", telemetry.WithHTTPRoute(handler.HandleArchive))
	api.HandleFunc("DELETE /orders/{id}/archive", telemetry.WithHTTPRoute(handler.HandleUnarchive))
	api.HandleFunc("GET /analytics", telemetry.WithHTTPRoute(analyticsHandler.HandleReport))

	authenticator := auth.NewAuthenticator(adminToken, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", authenticator.Middleware(api))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "orders",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orders service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func envDecimal(logger *slog.Logger, key, def string) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		raw = def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		logger.Error("invalid decimal environment variable", "key", key, "value", raw)
		os.Exit(1)
	}
	return d
}
