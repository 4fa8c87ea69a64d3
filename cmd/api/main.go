package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/redmonkez12/task-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/task-api/internal/auth"
	"github.com/redmonkez12/task-api/internal/config"
	"github.com/redmonkez12/task-api/internal/database"
	"github.com/redmonkez12/task-api/internal/email"
	httpServer "github.com/redmonkez12/task-api/internal/http"
	"github.com/redmonkez12/task-api/internal/logging"
	"github.com/redmonkez12/task-api/internal/media"
	"github.com/redmonkez12/task-api/internal/ratelimit"
	"github.com/redmonkez12/task-api/internal/task"
	"github.com/redmonkez12/task-api/internal/user"
	"github.com/redmonkez12/task-api/internal/validation"
	"github.com/redmonkez12/task-api/internal/verification"
)

// @title           Task API
// @version         1.0
// @description     REST API for personal task management with email verification, revocable bearer tokens and task images.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_format", cfg.Auth.TokenFormat,
	)

	// Initialize database connection
	sqlDB, err := database.Open(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Server.AutoMigrate {
		if err := database.Migrate(ctx, sqlDB); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("database migrations applied")
	}

	db := database.NewBunDB(sqlDB)

	// Initialize Redis connection
	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := user.NewRepository(db)
	verificationRepo := verification.NewRepository(db)
	taskRepo := task.NewRepository(db)
	revocationRepo := auth.NewRevocationRepository(db)

	// Initialize token manager
	signer, err := newSigner(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	tokens := auth.NewTokenManager(signer, revocationRepo, auth.NewRevocationCache(redisClient))

	// Initialize outbound services
	emailService := email.NewService(cfg.Email)
	mediaStore, err := media.NewS3Store(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}

	// Initialize services
	authService := auth.NewService(
		userRepo,
		verificationRepo,
		tokens,
		emailService,
		cfg.Auth.TokenTTL,
		cfg.Auth.VerificationTTL,
	)
	taskService := task.NewService(taskRepo, mediaStore)

	// Initialize router
	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:           auth.NewHandler(authService),
		AuthMiddleware: auth.NewMiddleware(tokens, userRepo),
		Tasks:          task.NewHandler(taskService, cfg.Media.MaxUploadSize),
		Validator:      validation.New(),
		Limiter:        ratelimit.NewLimiter(redisClient, cfg.RateLimit),
	}, logger)

	// Initialize HTTP server
	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// newSigner picks the token format configured by AUTH_TOKEN_FORMAT
func newSigner(cfg config.AuthConfig) (auth.Signer, error) {
	switch cfg.TokenFormat {
	case config.TokenFormatPaseto:
		return auth.NewPasetoSigner(cfg.PasetoKey)
	default:
		return auth.NewJWTSigner(cfg.JWTSecret)
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
