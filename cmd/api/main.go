package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"jobnest/internal/account"
	"jobnest/internal/api"
	"jobnest/internal/auth"
	"jobnest/internal/board"
	"jobnest/internal/config"
	"jobnest/internal/database"
	"jobnest/internal/messaging"
	"jobnest/internal/storage"
	"jobnest/internal/tasks"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.Int("port", cfg.Database.Port),
		slog.String("db", cfg.Database.Name),
	)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	storageCtx, cancelStorage := context.WithTimeout(context.Background(), 10*time.Second)
	storageClient, err := storage.NewClient(storageCtx, cfg.MinIO)
	if err == nil {
		err = storageClient.Ping(storageCtx)
	}
	cancelStorage()
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage ready", slog.String("bucket", cfg.MinIO.Bucket))

	authService, err := auth.NewAuthServiceFromFiles(
		cfg.Auth.PrivateKeyPath,
		cfg.Auth.PublicKeyPath,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	var scanner api.Scanner
	if cfg.Upload.ClamdAddr != "" {
		scanner = api.NewClamdScanner(cfg.Upload.ClamdAddr)
	} else {
		logger.Warn("clamd address not configured, uploads are not scanned")
	}

	accounts := account.NewStore(db, authService)
	handlers := api.Handlers{
		Auth: api.NewAuthHandler(accounts, authService, redisClient, logger, api.AuthLimits{
			LoginRateLimitPerHour: cfg.Auth.LoginRateLimitPerHour,
			LoginLockThreshold:    cfg.Auth.LoginLockThreshold,
			LoginLockTTL:          cfg.Auth.LoginLockTTL,
			CookieDomain:          cfg.Auth.CookieDomain,
		}),
		Users:        api.NewUserHandler(accounts),
		Jobs:         api.NewJobHandler(board.NewJobService(db)),
		Applications: api.NewApplicationHandler(board.NewApplicationService(db, tasks.NewEnqueuer(asynqClient), logger)),
		SavedJobs:    api.NewSavedJobHandler(board.NewSavedJobService(db)),
		Messages:     api.NewMessageHandler(messaging.NewEngine(db)),
		Uploads:      api.NewUploadHandler(storageClient, scanner, logger, cfg.Upload.MaxBytes, cfg.API.PublicBaseURL),
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, authService, handlers)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("api stopped")
}
