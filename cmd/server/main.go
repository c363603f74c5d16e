package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fr0stylo/shoptag/internal/app/services"
	"github.com/fr0stylo/shoptag/internal/config"
	"github.com/fr0stylo/shoptag/internal/contacts"
	"github.com/fr0stylo/shoptag/internal/observability"
	"github.com/fr0stylo/shoptag/internal/server"
	"github.com/fr0stylo/shoptag/internal/server/routes"
	"github.com/fr0stylo/shoptag/internal/tagging"
	"github.com/fr0stylo/shoptag/internal/upstream"
	shopifywebhook "github.com/fr0stylo/shoptag/internal/webhooks/shopify"
)

func Run(ctx context.Context) error {
	baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	log := slog.New(observability.WrapSlogHandler(baseHandler))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.IsLocalDevelopment() && os.Getenv("SHOPIFY_WEBHOOK_SECRET") == "" {
		slog.Warn("SHOPIFY_WEBHOOK_SECRET not set, using local development fallback", "shop", cfg.Shopify.ShopDomain)
	}
	if cfg.Upstream.APIKey == "" {
		slog.Warn("KIT_API_KEY not set, upstream calls will be unauthenticated")
	}
	mode, err := shopifywebhook.ParseDeliveryMode(cfg.Shopify.DeliveryMode)
	if err != nil {
		return fmt.Errorf("invalid SHOPTAG_DELIVERY_MODE: %w", err)
	}

	shutdownTelemetry, err := observability.SetupOpenTelemetry(ctx, log, observability.OpenTelemetryConfig{
		Enabled:           cfg.Observability.Enabled,
		OTLPEndpoint:      cfg.Observability.OTLPEndpoint,
		OTLPTraceHeaders:  cfg.Observability.OTLPTraceHeaders,
		OTLPMetricHeaders: cfg.Observability.OTLPMetricHeaders,
		ServiceName:       cfg.Observability.ServiceName,
		ServiceVer:        cfg.Observability.ServiceVer,
		SamplingRatio:     cfg.Observability.SamplingRatio,
		MetricsConsole:    cfg.Observability.MetricsConsole,
		MetricsInterval:   cfg.MetricsInterval(),
		Environment:       cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	gateway := upstream.New(upstream.Config{
		Routes: upstream.Routes{
			BaseURLs: cfg.Upstream.BaseURLs,
			Prefixes: cfg.Upstream.RoutePrefixes,
		},
		APIKey:        cfg.Upstream.APIKey,
		APIKeyHeader:  cfg.Upstream.APIKeyHeader,
		Timeout:       cfg.UpstreamTimeout(),
		MaxRetries:    cfg.Upstream.MaxRetries,
		RetryDelay:    cfg.UpstreamRetryDelay(),
		MaxRetryDelay: cfg.UpstreamMaxRetryDelay(),
		Logger:        log,
	})

	cache, closeCache, err := openTagCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	resolver := tagging.NewResolver(gateway, cache, log)
	directory := contacts.NewDirectory(gateway, contacts.Config{FallbackFormID: cfg.Upstream.FallbackFormID}, log)
	syncService := services.NewPurchaseSyncService(cfg.Tagging.SKUTags, resolver, directory, log)
	handler := shopifywebhook.NewHandler(
		shopifywebhook.NewVerifier(cfg.Shopify.WebhookSecret, cfg.Shopify.ShopDomain),
		syncService,
		shopifywebhook.DeliveryPolicy{Mode: mode},
		log,
	)

	srv := server.New(log)
	srv.RegisterRouter(routes.HealthRoutes{})
	srv.RegisterRouter(routes.NewWebhookRoutes(cfg.Server.WebhookPath, handler))

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("Starting server",
			"port", cfg.Server.Port,
			"webhook_path", cfg.Server.WebhookPath,
			"mapped_skus", len(cfg.Tagging.SKUTags),
			"delivery_mode", mode,
		)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func openTagCache(ctx context.Context, cfg config.Config, log *slog.Logger) (tagging.Cache, func(), error) {
	if cfg.Tagging.CacheRedisURL == "" {
		return tagging.NewMemoryCache(), func() {}, nil
	}
	cache, err := tagging.OpenRedisCache(ctx, cfg.Tagging.CacheRedisURL, cfg.TagCacheTTL(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open tag cache: %w", err)
	}
	slog.Info("Using shared tag cache", "ttl", cfg.TagCacheTTL())
	return cache, func() {
		if err := cache.Close(); err != nil {
			slog.Error("Failed to close tag cache", "error", err)
		}
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
