package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/api/handler"
	"github.com/d60-Lab/warbler/internal/api/router"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/session"
	"github.com/d60-Lab/warbler/pkg/credential"
	"github.com/d60-Lab/warbler/pkg/database"
	"github.com/d60-Lab/warbler/pkg/jwt"
	"github.com/d60-Lab/warbler/pkg/logger"
	"github.com/d60-Lab/warbler/pkg/tracing"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run schema migration before serving")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	revocations, rdb, err := newRevocationStore(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	store := repository.NewStore(db)
	hasher := credential.NewHasher(cfg.Warbler.BcryptCost)
	sessions := session.NewManager(jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expire), revocations)
	h := handler.NewHandler(
		service.NewAuthService(store, hasher, cfg.Warbler),
		service.NewUserService(store, hasher, cfg.Warbler),
		service.NewRelationshipService(store),
		service.NewMessageService(store, cfg.Warbler),
		sessions,
	)
	engine := router.Setup(router.Options{
		Config:   cfg,
		Handler:  h,
		Sessions: sessions,
		Health:   healthCheck(db, rdb),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// newRevocationStore 配置了 Redis 地址时使用 Redis，否则退化为进程内存储
func newRevocationStore(ctx context.Context, cfg config.RedisConfig) (session.RevocationStore, *redis.Client, error) {
	if cfg.Addr == "" {
		logger.Warn("redis not configured, logout revocation is process-local")
		return session.NewMemoryStore(), nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return session.NewRedisStore(rdb), rdb, nil
}

func healthCheck(db *gorm.DB, rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}
}
