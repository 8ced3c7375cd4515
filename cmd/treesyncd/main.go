// Command treesyncd runs a synchronized tree store behind an HTTP API,
// optionally replicating over Redis pub/sub or a WebSocket relay.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"treesync/engine"
	"treesync/server"
	"treesync/transport"
)

func main() {
	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	tp, err := buildTransport(logger)
	if err != nil {
		logger.Fatal("failed to build transport", zap.Error(err))
	}

	opts := engine.NewOptions()
	opts.Logger = logger
	opts.Transport = tp
	eng, err := engine.New(opts)
	if err != nil {
		logger.Fatal("failed to create engine", zap.Error(err))
	}
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := eng.Connect(ctx); err != nil {
		cancel()
		logger.Fatal("failed to connect", zap.Error(err))
	}
	cancel()

	addr := envOr("TREESYNC_ADDR", ":8080")
	srv := &http.Server{
		Addr:    addr,
		Handler: server.NewServer(eng, logger).Handler(),
	}

	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

// buildTransport picks a transport from the environment. With no transport
// configured the engine runs purely locally.
func buildTransport(logger *zap.Logger) (engine.Transport, error) {
	switch envOr("TREESYNC_TRANSPORT", "none") {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: envOr("TREESYNC_REDIS_ADDR", "localhost:6379"),
		})
		return transport.NewRedisTransport(client, envOr("TREESYNC_REDIS_CHANNEL", "treesync"), logger)
	case "websocket":
		return transport.NewWebSocketTransport(envOr("TREESYNC_WS_URL", "ws://localhost:9000/sync"), logger), nil
	default:
		return nil, nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
