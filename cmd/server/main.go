package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mhalushka/rolodex/internal/auth"
	"github.com/mhalushka/rolodex/internal/avatar"
	"github.com/mhalushka/rolodex/internal/channels"
	"github.com/mhalushka/rolodex/internal/config"
	"github.com/mhalushka/rolodex/internal/contactchannels"
	"github.com/mhalushka/rolodex/internal/contacts"
	"github.com/mhalushka/rolodex/internal/database"
	"github.com/mhalushka/rolodex/internal/mailer"
	"github.com/mhalushka/rolodex/internal/ratelimit"
	"github.com/mhalushka/rolodex/internal/server"
	"github.com/mhalushka/rolodex/internal/users"
	"github.com/mhalushka/rolodex/internal/worker"
)

func main() {
	cfg := config.Load()

	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := database.SeedChannels(db); err != nil {
		slog.Error("failed to seed channels", "error", err)
		os.Exit(1)
	}

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpt)
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	userStore := users.NewStore(users.NewRepository(db), rdb)

	authService, err := auth.NewService(userStore, cfg)
	if err != nil {
		slog.Error("failed to build auth service", "error", err)
		os.Exit(1)
	}
	emailTokens, err := auth.NewEmailTokens(cfg)
	if err != nil {
		slog.Error("failed to build email token signer", "error", err)
		os.Exit(1)
	}

	mail := mailer.NewClient(cfg.MailWebhookURL, cfg.MailWebhookSecret, cfg.MailFrom)

	enqueuer, err := worker.NewEnqueuer(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to create task enqueuer", "error", err)
		os.Exit(1)
	}
	defer enqueuer.Close()

	stopWorker, err := worker.Start(cfg, mail, emailTokens)
	if err != nil {
		slog.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	defer stopWorker()

	if cfg.S3Bucket == "" {
		slog.Warn("S3_BUCKET not set, avatar uploads will return errors")
	}
	avatarStorage, err := avatar.NewS3Uploader(context.Background(), cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		slog.Error("failed to configure S3 uploader", "error", err)
		os.Exit(1)
	}

	router := server.NewRouter(server.Deps{
		Config:          cfg,
		Auth:            authService,
		EmailTokens:     emailTokens,
		Users:           userStore,
		Contacts:        contacts.NewRepository(db),
		Channels:        channels.NewRepository(db),
		ContactChannels: contactchannels.NewRepository(db),
		AvatarStorage:   avatarStorage,
		Avatars:         avatar.NewGravatar(),
		Enqueuer:        enqueuer,
		Limiter:         ratelimit.New(rdb, cfg.RateLimitPerMinute),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
