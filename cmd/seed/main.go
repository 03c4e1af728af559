package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"kitchensink/internal/auth"
	"kitchensink/internal/config"
	"kitchensink/internal/db"
	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/repository"
	"kitchensink/internal/service"
)

const seedTimeout = 30 * time.Second

// seedAdmin holds the account created by the seed tool.
type seedAdmin struct {
	Username string
	Email    string
	Password string
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting seed script")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	admin, err := adminFromEnv()
	if err != nil {
		logger.Fatal("read seed account", zap.Error(err))
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}
	logger.Info("database migrations completed")

	hasher, err := auth.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		logger.Fatal("init password hasher", zap.Error(err))
	}

	users := repository.NewUserRepository(gormDB)
	tokens := repository.NewRefreshTokenRepository(gormDB)
	refresh := auth.NewRefreshTokenService(tokens, users, cfg.RefreshTokenLifetime, logger)
	userService := service.NewUserService(users, repository.NewContactRepository(gormDB), hasher, refresh, nil, 0, logger)

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	created, err := seed(ctx, userService, admin)
	if err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}
	if created {
		logger.Info("admin account created", zap.String("username", admin.Username))
	} else {
		logger.Info("admin account already exists", zap.String("username", admin.Username))
	}
}

func adminFromEnv() (seedAdmin, error) {
	admin := seedAdmin{
		Username: os.Getenv("SEED_ADMIN_USERNAME"),
		Email:    os.Getenv("SEED_ADMIN_EMAIL"),
		Password: os.Getenv("SEED_ADMIN_PASSWORD"),
	}
	var errs []error
	if admin.Username == "" {
		errs = append(errs, errors.New("SEED_ADMIN_USERNAME is required"))
	}
	if admin.Email == "" {
		errs = append(errs, errors.New("SEED_ADMIN_EMAIL is required"))
	}
	if len(admin.Password) < 8 {
		errs = append(errs, errors.New("SEED_ADMIN_PASSWORD must be at least 8 characters"))
	}
	return admin, errors.Join(errs...)
}

// seed creates the admin unless the username is already registered.
func seed(ctx context.Context, users service.UserService, admin seedAdmin) (bool, error) {
	if _, err := users.GetUserByUsername(ctx, admin.Username); err == nil {
		return false, nil
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		return false, err
	}

	if _, err := users.CreateAdmin(ctx, admin.Username, admin.Email, admin.Password); err != nil {
		return false, err
	}
	return true, nil
}
