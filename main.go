package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"meeting-orchestrator/internal/common/logging"
	"meeting-orchestrator/internal/config"
	"meeting-orchestrator/internal/crypto"
	"meeting-orchestrator/internal/handlers"
	"meeting-orchestrator/internal/orchestrator"
	"meeting-orchestrator/internal/providers/google"
	"meeting-orchestrator/internal/providers/jitsi"
	"meeting-orchestrator/internal/providers/zoom"
	"meeting-orchestrator/internal/schedule"
	"meeting-orchestrator/internal/schedule/sqlite"
	"meeting-orchestrator/internal/token"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.NewZapLogger(logging.LogConfig{
		Level: logging.ParseLevel(cfg.LogLevel),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logging.SetGlobalLogger(logger)
	defer logging.MustSync()

	ctx := context.Background()

	// Optional shared token storage for multi-instance deployments
	tokenStorage := buildTokenStorage(cfg, logger)

	callTimeout := cfg.ProviderTimeoutDuration()

	calendarClient := google.NewClient(ctx, google.Config{
		CredentialsFile: cfg.CalendarCredentialsFile,
		CalendarID:      cfg.CalendarID,
	}, google.WithLogger(logger), google.WithCallTimeout(callTimeout))

	zoomOpts := []zoom.Option{
		zoom.WithLogger(logger),
		zoom.WithCallTimeout(callTimeout),
	}
	if tokenStorage != nil {
		zoomOpts = append(zoomOpts, zoom.WithTokenStorage(tokenStorage))
	}
	zoomClient := zoom.NewClient(zoom.Config{
		AccountID:    cfg.ZoomAccountID,
		ClientID:     cfg.ZoomClientID,
		ClientSecret: cfg.ZoomClientSecret,
		UserID:       cfg.ZoomUserID,
	}, zoomOpts...)

	logger.Info("Provider configuration",
		logging.Bool("calendar_configured", calendarClient.Configured()),
		logging.Bool("meeting_configured", zoomClient.Configured()),
		logging.Duration("call_timeout", callTimeout),
		logging.String("fallback_base_url", cfg.FallbackBaseURL))
	if !cfg.CalendarConfigured() && !cfg.MeetingConfigured() {
		logger.Warn("No provider credentials configured, every interview will use the fallback room")
	}

	meetings := orchestrator.New(calendarClient, zoomClient,
		jitsi.NewRoomGenerator(cfg.FallbackBaseURL),
		orchestrator.WithLogger(logger))

	store, err := sqlite.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize schedule store: %v", err)
	}
	defer store.Close()

	service := schedule.NewService(meetings, store, schedule.WithLogger(logger))

	router := mux.NewRouter()
	handlers.New(service, store.Health, logger).RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Server starting on port %s...\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	fmt.Println("Server exited")
}

// buildTokenStorage wires Redis-backed token storage when configured.
// Returns nil when Redis is disabled; the token cache then stays in-process.
func buildTokenStorage(cfg *config.Config, logger logging.Logger) token.Storage {
	if cfg.RedisAddress == "" {
		return nil
	}

	db, _ := strconv.Atoi(cfg.RedisDB)
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       db,
	})

	encryptor, err := crypto.NewTokenEncryptor(cfg.TokenEncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize token encryptor: %v", err)
	}

	logger.Info("Redis token storage enabled",
		logging.String("address", cfg.RedisAddress))

	return token.NewRedisStorage(token.NewGoRedisAdapter(client), encryptor)
}
