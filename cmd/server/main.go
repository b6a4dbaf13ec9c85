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

	"eportfolio/backend/internal/config"
	authdomain "eportfolio/backend/internal/domain/auth"
	"eportfolio/backend/internal/httpserver"
	"eportfolio/backend/internal/infrastructure/memory"
	"eportfolio/backend/internal/infrastructure/password"
	"eportfolio/backend/internal/infrastructure/postgres"
	"eportfolio/backend/internal/infrastructure/ratelimit"
	"eportfolio/backend/internal/infrastructure/token"
	authusecase "eportfolio/backend/internal/usecase/auth"
	userusecase "eportfolio/backend/internal/usecase/user"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	rootCtx := context.Background()

	directory, closeDirectory, err := openDirectory(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDirectory()

	hasher := password.NewBcrypt(cfg.Auth.BcryptCost)
	userService := userusecase.NewService(directory, hasher)
	if cfg.Directory.SeedDemoAccounts {
		if cfg.Directory.Backend == config.BackendPostgres {
			logger.Warn("seeding demo accounts with the shared demo password into postgres")
		}
		created, err := userService.SeedDemoAccounts(rootCtx)
		if err != nil {
			return fmt.Errorf("seed demo accounts: %w", err)
		}
		logger.Info("demo accounts seeded", "created", created)
	}

	tokenManager, err := token.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	var authOpts []authusecase.Option
	if cfg.Throttle.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(rootCtx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		limiter, err := ratelimit.NewRedisLimiter(rdb, cfg.Throttle.MaxAttempts, cfg.Throttle.Window)
		if err != nil {
			return fmt.Errorf("login throttle: %w", err)
		}
		authOpts = append(authOpts, authusecase.WithLoginLimiter(limiter))
		logger.Info("login throttle enabled",
			"max_attempts", cfg.Throttle.MaxAttempts,
			"window", cfg.Throttle.Window.String(),
		)
	}

	authService := authusecase.NewService(directory, hasher, tokenManager, authOpts...)
	server := httpserver.NewServer(cfg, authService, userService, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr(), "directory", cfg.Directory.Backend)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("graceful shutdown completed")
	return nil
}

func openDirectory(ctx context.Context, cfg config.Config, logger *slog.Logger) (authdomain.Directory, func(), error) {
	switch cfg.Directory.Backend {
	case config.BackendPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		db, err := postgres.New(connectCtx, cfg.Directory.DatabaseURL, postgres.Options{MaxConns: cfg.Directory.MaxConns})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(connectCtx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("run database migrations: %w", err)
		}
		logger.Info("postgres directory ready")
		return db.Users(), db.Close, nil
	default:
		return memory.NewDirectory(), func() {}, nil
	}
}
