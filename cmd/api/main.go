package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/littlemirai-storefront/api/controllers"
	"github.com/angelmondragon/littlemirai-storefront/api/routes"
	"github.com/angelmondragon/littlemirai-storefront/internal/cart"
	"github.com/angelmondragon/littlemirai-storefront/internal/catalog"
	"github.com/angelmondragon/littlemirai-storefront/internal/checkout"
	"github.com/angelmondragon/littlemirai-storefront/internal/cron"
	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/internal/shoppers"
	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
	"github.com/angelmondragon/littlemirai-storefront/pkg/db"
	"github.com/angelmondragon/littlemirai-storefront/pkg/instance"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/angelmondragon/littlemirai-storefront/pkg/metrics"
	"github.com/angelmondragon/littlemirai-storefront/pkg/migrate"
	"github.com/angelmondragon/littlemirai-storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var (
		idempotency redis.IdempotencyStore
		redisPinger controllers.Pinger
	)
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		idempotency, redisPinger = redisClient, redisClient
	} else {
		logg.Warn(ctx, "redis not configured, idempotency records are process-local")
		idempotency = redis.NewMemoryStore()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewStorefrontMetrics(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return err
	}

	dispatcher := payments.NewDispatcher()
	stack := buildPaymentStack(ctx, gatewayDeps{
		cfg:        cfg,
		logg:       logg,
		dispatcher: dispatcher,
		store:      idempotency,
		metrics:    storefrontMetrics,
	})

	pricing, err := cart.PricingFromConfig(cfg.Pricing)
	if err != nil {
		return err
	}
	registry, err := shoppers.NewRegistry(shoppers.Params{
		Pricing: pricing,
		Gateway: stack.gateway,
		Logger:  logg,
		Metrics: storefrontMetrics,
		Checkout: checkout.Options{
			PaymentTimeout: cfg.Checkout.PaymentTimeout,
			MerchantName:   cfg.App.MerchantName,
			Description:    cfg.Checkout.Description,
		},
		IdleTTL: cfg.Checkout.SessionIdleTTL,
	})
	if err != nil {
		return err
	}

	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(shoppers.NewSweepJob(registry, logg)),
		Metrics:  jobMetrics,
		Interval: cfg.Checkout.SweepInterval,
	})
	if err != nil {
		return err
	}
	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "session sweep stopped", err)
		}
	}()

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisPinger,
		Idempotency:   idempotency,
		Gatherer:      reg,
		Catalog:       catalogService,
		Shoppers:      registry,
		Gateway:       stack.gateway,
		StripeWebhook: stack.stripeWebhook,
		SquareWebhook: stack.squareWebhook,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"provider": stack.gateway.Name(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
