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

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/guard"
	httpapi "github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/register"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- upstream ---
	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	upstream := clients.NewClient("pos-backend", cfg.UpstreamURL, httpClient)
	products := clients.NewProductClient(upstream, cfg.CatalogPageSize)
	methods := clients.NewPaymentMethodClient(upstream)
	transactions := clients.NewTransactionClient(upstream)

	// --- submission guard ---
	g, closeGuard, err := buildGuard(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("guard", zap.Error(err))
	}
	defer closeGuard()

	// --- events ---
	publisher, err := buildPublisher(cfg)
	if err != nil {
		logger.Fatal("event publisher", zap.Error(err))
	}
	defer func() { _ = publisher.Close() }()

	// --- register ---
	orchestrator := checkout.NewOrchestrator(transactions, g, logger.Named("checkout"))
	registry := register.NewRegistry(register.Deps{
		Products:      products,
		Methods:       methods,
		Checkout:      orchestrator,
		Publisher:     publisher,
		Logger:        logger.Named("register"),
		DefaultMethod: cfg.DefaultMethod,
		IdleTTL:       cfg.SessionIdleTTL,
	})
	if cfg.SessionIdleTTL > 0 {
		go registry.RunSweeper(ctx, sweepInterval(cfg.SessionIdleTTL))
	}

	// --- HTTP ---
	h := httpapi.NewHandler(registry, transactions, logger.Named("http"))
	r := httpapi.NewRouter(h, logger, cfg.CORSAllowOrigins)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http listening",
			zap.String("addr", httpServer.Addr),
			zap.String("upstream", cfg.UpstreamURL),
			zap.String("guard", cfg.GuardBackend),
			zap.String("events", cfg.EventsTransport))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("shutdown complete")
}

func buildGuard(ctx context.Context, cfg config.Config, logger *zap.Logger) (checkout.Guard, func(), error) {
	if cfg.GuardBackend != "redis" {
		return guard.NewMemoryGuard(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return guard.NewRedisGuard(rdb, cfg.GuardTTL, logger.Named("guard")), func() { _ = rdb.Close() }, nil
}

func buildPublisher(cfg config.Config) (events.Publisher, error) {
	switch cfg.EventsTransport {
	case "amqp":
		conn, err := events.DialRabbit(cfg.RabbitURL)
		if err != nil {
			return nil, err
		}
		pub, err := events.NewRabbitPublisher(conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &connPublisher{Publisher: pub, closeConn: conn.Close}, nil
	case "kafka":
		return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)), nil
	default:
		return events.NopPublisher{}, nil
	}
}

// connPublisher closes the AMQP connection after the publisher's channel.
type connPublisher struct {
	events.Publisher
	closeConn func() error
}

func (p *connPublisher) Close() error {
	return errors.Join(p.Publisher.Close(), p.closeConn())
}

func sweepInterval(ttl time.Duration) time.Duration {
	iv := ttl / 4
	if iv < time.Minute {
		return time.Minute
	}
	return iv
}
