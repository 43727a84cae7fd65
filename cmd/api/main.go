package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/vendazap/platform/internal/ai"
	"github.com/vendazap/platform/internal/api/router"
	"github.com/vendazap/platform/internal/auth"
	appconfig "github.com/vendazap/platform/internal/config"
	"github.com/vendazap/platform/internal/customers"
	httpmiddleware "github.com/vendazap/platform/internal/http/middleware"
	"github.com/vendazap/platform/internal/observability/metrics"
	"github.com/vendazap/platform/internal/orders"
	"github.com/vendazap/platform/internal/payments"
	"github.com/vendazap/platform/internal/products"
	"github.com/vendazap/platform/internal/whatsapp"
	"github.com/vendazap/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting vendazap API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, catalog cache disabled", "error", err)
			redisClient = nil
		}
	}

	// Repositories
	userRepo := auth.NewPostgresRepository(pool)
	customerRepo := customers.NewPostgresRepository(pool)
	productRepo := products.NewPostgresRepository(pool)
	orderRepo := orders.NewPostgresRepository(pool)
	catalog := products.NewCachedCatalog(productRepo, redisClient, cfg.CatalogCacheTTL, logger)

	// External clients
	waClient, err := whatsapp.NewClient(whatsapp.Config{
		BaseURL:       cfg.WhatsAppBaseURL,
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		BusinessID:    cfg.WhatsAppBusinessID,
		MaxRetries:    2,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("failed to create whatsapp client", "error", err)
		os.Exit(1)
	}
	classifier := ai.NewOpenAIClassifier(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel, logger)
	mpClient, err := payments.NewMercadoPagoClient(payments.MercadoPagoConfig{
		BaseURL:     cfg.MercadoPagoBaseURL,
		AccessToken: cfg.MercadoPagoAccessToken,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to create mercado pago client", "error", err)
		os.Exit(1)
	}

	// Auth
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		logger.Error("failed to create token manager", "error", err)
		os.Exit(1)
	}

	// Observability
	registry := prometheus.NewRegistry()
	messagingMetrics := metrics.NewMessagingMetrics(registry)

	// Core pipeline and services
	pipeline := whatsapp.NewPipeline(customerRepo, classifier, waClient, catalog, cfg.CatalogLimit, messagingMetrics, logger)
	paymentService := payments.NewService(mpClient, orderRepo, productRepo, cfg.PublicBaseURL, logger)

	// Handlers
	routerCfg := &router.Config{
		Logger:           logger,
		AuthHandler:      auth.NewHandler(userRepo, tokens, cfg.BCryptCost, logger),
		ProductsHandler:  products.NewHandler(productRepo, catalog, logger),
		CustomersHandler: customers.NewHandler(customerRepo, waClient, logger),
		OrdersHandler:    orders.NewHandler(orderRepo, logger),
		WhatsAppHandler:  whatsapp.NewHandler(pipeline, waClient, cfg.WhatsAppVerifyToken, logger),
		PaymentsHandler:  payments.NewHandler(paymentService, logger),
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),

		Authenticate: httpmiddleware.Authenticator(tokens, userRepo, logger),

		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		LoginRatePerSecond: 2,
		LoginBurst:         10,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
