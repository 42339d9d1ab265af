package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/philippebeck/links2code-api/internal/app"
	"github.com/philippebeck/links2code-api/internal/sdk/sqldb"
	"github.com/philippebeck/links2code-api/internal/services/hash"
	"github.com/philippebeck/links2code-api/internal/services/mailer"
	"github.com/philippebeck/links2code-api/internal/services/ratelimit"
	"github.com/philippebeck/links2code-api/internal/services/sentry"
	"github.com/philippebeck/links2code-api/internal/services/storage"
	"github.com/philippebeck/links2code-api/internal/services/token"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 1. Initialize Database
	dbService := sqldb.New()

	// 2. Initialize Services
	hashService := hash.NewHashService()
	tokenService := token.NewTokenService()
	mailService := mailer.NewMailtrapService()
	sentryService := sentry.NewSentryService()

	storageService, err := storage.NewMinioService()
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := storageService.EnsureBucket(ctx); err != nil {
		logger.Warn("bucket check failed", "error", err)
	}
	cancel()

	// 3. Initialize Rate Guard
	var limitStore ratelimit.Store = ratelimit.NewMemoryStore()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		limitStore = ratelimit.NewRedisStore(client, "links2code:ratelimit")
	}
	guard := ratelimit.NewGuard(limitStore)

	// 4. Initialize App
	application := app.NewApp(dbService, storageService, mailService, sentryService, tokenService, hashService, guard, logger)

	// 5. Configure Server
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080 // Fallback default
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      application.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// 6. Graceful Shutdown Logic
	done := make(chan bool, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down gracefully, press Ctrl+C again to force")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}

		sentryService.Close()
		if err := dbService.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}

		done <- true
	}()

	// 7. Start Server
	logger.Info("Starting server", "port", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	logger.Info("Graceful shutdown complete")
	return nil
}
