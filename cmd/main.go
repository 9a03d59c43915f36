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

	"chatrelay/internal/config"
	"chatrelay/internal/entities"
	"chatrelay/internal/infrastructure"
	httpapi "chatrelay/internal/interfaces/http"
	"chatrelay/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	logger, err := infrastructure.NewLogger(cfg.Environment, cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error building logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		var connErr *infrastructure.ConnectionError
		if errors.As(err, &connErr) {
			// Unreachable database at startup is not recoverable.
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// run connects the database, then serves the relay API until ctx is done.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := infrastructure.ConnectDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			logger.Warn("database close failed", zap.Error(err))
		}
	}()

	relay := usecases.NewRelayService(logger)
	relay.Register(entities.PlatformChat, infrastructure.NewChatClient(cfg.Chat.BaseURL, nil, logger))
	relay.Register(entities.PlatformTelegram, infrastructure.NewTelegramMessenger(cfg.Telegram.APIEndpoint, nil, logger))

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	httpapi.SetupRoutes(r, httpapi.NewHandler(relay, db, logger), httpapi.NewMiddleware(cfg.HTTP.JWTSecret), httpapi.RouteOptions{
		RateLimit:    cfg.HTTP.RateLimit,
		RateBurst:    cfg.HTTP.RateBurst,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	})

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr), zap.Strings("platforms", relay.Platforms()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
