package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "kitchensink/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kitchensink/internal/auth"
	"kitchensink/internal/cache"
	"kitchensink/internal/config"
	"kitchensink/internal/db"
	"kitchensink/internal/handler"
	"kitchensink/internal/metrics"
	"kitchensink/internal/repository"
	"kitchensink/internal/repository/memory"
	"kitchensink/internal/router"
	"kitchensink/internal/service"
	"kitchensink/internal/sweeper"
)

const shutdownTimeout = 10 * time.Second

// @title Kitchensink API
// @version 1.0
// @description Contacts and user administration with JWT authentication and one active refresh token per user.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

type stores struct {
	users    repository.UserRepository
	contacts repository.ContactRepository
	tokens   repository.TokenStore
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	if err := cacheClient.Ping(ctx); err != nil {
		if cfg.TokenStore == config.TokenStoreRedis {
			return fmt.Errorf("redis: %w", err)
		}
		logger.Warn("redis unavailable, user cache disabled", zap.Error(err))
	}

	st, err := openStores(cfg, cacheClient, logger)
	if err != nil {
		return err
	}

	hasher, err := auth.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenLifetime)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	authMetrics := metrics.NewAuthMetrics(reg)

	refresh := auth.NewRefreshTokenService(st.tokens, st.users, cfg.RefreshTokenLifetime, logger)
	authService := service.NewAuthService(st.users, hasher, codec, refresh, authMetrics, service.AuthOptions{
		RotateRefreshTokens: cfg.RotateRefreshTokens(),
		LogoutRevokesAll:    cfg.LogoutRevokesAll,
	}, logger)
	userService := service.NewUserService(st.users, st.contacts, hasher, refresh, cacheClient, cfg.UserCacheTTL, logger)
	contactService := service.NewContactService(st.contacts, st.users, logger)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, logger, codec, reg, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		User:    handler.NewUserHandler(userService),
		Contact: handler.NewContactHandler(contactService),
	})

	sw := sweeper.New(st.tokens, cfg.TokenSweepSchedule, authMetrics, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.ServerPort
		logger.Info("server listening", zap.String("addr", addr), zap.String("swagger", swaggerURL(cfg)))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sw.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStores selects the identity and token stores named by the configuration.
func openStores(cfg *config.Config, cacheClient *cache.Client, logger *zap.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		st.users = memory.NewUserRepository()
		st.contacts = memory.NewContactRepository()
		if cfg.TokenStore == config.TokenStoreSQL {
			st.tokens = memory.NewTokenStore()
		}
	default:
		gormDB, err := db.NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		if os.Getenv("RESET_DB") == "true" {
			logger.Warn("RESET_DB=true detected, dropping all tables")
			if err := db.DropAll(gormDB); err != nil {
				return nil, err
			}
		}
		if err := db.Migrate(gormDB); err != nil {
			return nil, err
		}
		st.users = repository.NewUserRepository(gormDB)
		st.contacts = repository.NewContactRepository(gormDB)
		if cfg.TokenStore == config.TokenStoreSQL {
			st.tokens = repository.NewRefreshTokenRepository(gormDB)
		}
	}

	if cfg.TokenStore == config.TokenStoreRedis {
		st.tokens = auth.NewRedisTokenStore(cacheClient.Redis())
	}
	return st, nil
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
