// cartsyncd runs the cart sync engine for one shopper and serves it to a
// local UI or agent over MCP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"cartsync/internal/cartapi"
	"cartsync/internal/config"
	"cartsync/internal/gateway"
	"cartsync/internal/handler"
	"cartsync/internal/middleware"
	"cartsync/internal/reconcile"
	"cartsync/internal/session"
	"cartsync/internal/store"
	"cartsync/internal/transport"
)

// version is reported in the Cart-Client header and the MCP implementation.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("backend_url", cfg.Backend.URL),
		slog.String("store_driver", cfg.Store.Driver),
		slog.Bool("chrome_tls", cfg.Backend.ChromeTLS),
		slog.Duration("resync_interval", cfg.ResyncInterval),
	)

	kv, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer kv.Close()
	local := store.NewLocal(kv, logger)

	gw, err := gateway.New(gateway.Config{
		BaseURL:       cfg.Backend.URL,
		ClientID:      cfg.Backend.ClientID,
		ClientVersion: version,
		APIKey:        cfg.Backend.APIKey,
		Transport:     transport.New(transport.Options{ChromeFingerprint: cfg.Backend.ChromeTLS}),
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	sessions := session.NewManager(ctx, local, logger)
	defer sessions.Close()

	engine, err := reconcile.New(reconcile.Config{
		Local:            local,
		Gateway:          gw,
		Sessions:         sessions,
		Logger:           logger,
		ResyncInterval:   cfg.ResyncInterval,
		MinSchemaVersion: cfg.MinCartSchema,
		OnChange: func(s reconcile.Snapshot) {
			logger.Debug("state changed",
				slog.String("mode", string(s.Session.Mode)),
				slog.Int("cart_items", s.Cart.ItemCount()),
				slog.Int("wishlist_items", len(s.Wishlist)),
			)
		},
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer engine.Close()

	h := handler.New(cartapi.New(engine), logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: request ID → recovery → logging → handler
	// Recovery wraps logging so panics there are caught too
	httpHandler := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logging(logger),
	)(mux)

	// MCP responses may stream, so there is no write timeout.
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     httpHandler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}

		// Let queued work persist before the store closes.
		if err := engine.Flush(shutdownCtx); err != nil {
			logger.Warn("engine flush incomplete", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
	return nil
}

// openStore creates the durable local store selected by configuration.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch store.StoreType(cfg.Store.Driver) {
	case store.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Store.RedisAddr, err)
		}
		return store.NewStore(store.StoreTypeRedis,
			store.WithRedisClient(client),
			store.WithRedisNamespace(cfg.Store.RedisNamespace),
			store.WithRedisTTL(cfg.Store.RedisTTL),
		)
	default:
		return store.NewStore(store.StoreType(cfg.Store.Driver), store.WithPath(cfg.Store.Path))
	}
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
