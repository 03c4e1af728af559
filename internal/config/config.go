package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// StoreMySQL keeps users, contacts and (optionally) refresh tokens in MySQL.
	StoreMySQL = "mysql"
	// StoreMemory keeps everything in process; for local development.
	StoreMemory = "memory"

	// TokenStoreRedis keeps refresh tokens in Redis.
	TokenStoreRedis = "redis"
	// TokenStoreSQL keeps refresh tokens in the relational store.
	TokenStoreSQL = "sql"

	// RotationReuse keeps a refresh token valid until it expires.
	RotationReuse = "reuse"
	// RotationRotate replaces the refresh token on every exchange.
	RotationRotate = "rotate"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	ServerPort     string
	RequestTimeout time.Duration
	SwaggerHost    string

	StoreDriver string
	MySQLDSN    string
	TokenStore  string

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret            string
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
	RefreshRotation      string
	LogoutRevokesAll     bool
	PasswordHasher       string
	BcryptCost           int
	TokenSweepSchedule   string
	CORSAllowedOrigins   []string
	UserCacheTTL         time.Duration
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	Server struct {
		Port           string `yaml:"port"`
		RequestTimeout string `yaml:"requestTimeout"`
	} `yaml:"server"`
	Auth struct {
		JWT struct {
			Secret            string `yaml:"secret"`
			AccessLifetimeMs  int64  `yaml:"accessLifetimeMs"`
			RefreshLifetimeMs int64  `yaml:"refreshLifetimeMs"`
		} `yaml:"jwt"`
		RefreshRotation  string `yaml:"refreshRotation"`
		LogoutRevokesAll *bool  `yaml:"logoutRevokesAll"`
		PasswordHasher   string `yaml:"passwordHasher"`
		BcryptCost       int    `yaml:"bcryptCost"`
	} `yaml:"auth"`
	Store struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"store"`
	TokenStore string `yaml:"tokenStore"`
	Redis      struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`
	TokenSweepSchedule string `yaml:"tokenSweepSchedule"`
}

func defaults() *Config {
	return &Config{
		AppEnv:               "production",
		ServerPort:           "8080",
		RequestTimeout:       5 * time.Second,
		StoreDriver:          StoreMySQL,
		MySQLDSN:             "user:password@tcp(localhost:3306)/kitchensink?charset=utf8mb4&parseTime=True&loc=UTC",
		TokenStore:           TokenStoreRedis,
		RedisAddr:            "localhost:6379",
		AccessTokenLifetime:  15 * time.Minute,
		RefreshTokenLifetime: 24 * time.Hour,
		RefreshRotation:      RotationReuse,
		PasswordHasher:       "bcrypt",
		BcryptCost:           12,
		TokenSweepSchedule:   "@every 10m",
		UserCacheTTL:         5 * time.Minute,
	}
}

// Load builds Config from defaults, an optional YAML file (CONFIG_FILE), a
// .env file if present, and finally the environment, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&c.ServerPort, f.Server.Port)
	if f.Server.RequestTimeout != "" {
		d, err := time.ParseDuration(f.Server.RequestTimeout)
		if err != nil {
			return fmt.Errorf("server.requestTimeout: %w", err)
		}
		c.RequestTimeout = d
	}
	setString(&c.JWTSecret, f.Auth.JWT.Secret)
	if f.Auth.JWT.AccessLifetimeMs != 0 {
		c.AccessTokenLifetime = time.Duration(f.Auth.JWT.AccessLifetimeMs) * time.Millisecond
	}
	if f.Auth.JWT.RefreshLifetimeMs != 0 {
		c.RefreshTokenLifetime = time.Duration(f.Auth.JWT.RefreshLifetimeMs) * time.Millisecond
	}
	setString(&c.RefreshRotation, f.Auth.RefreshRotation)
	if f.Auth.LogoutRevokesAll != nil {
		c.LogoutRevokesAll = *f.Auth.LogoutRevokesAll
	}
	setString(&c.PasswordHasher, f.Auth.PasswordHasher)
	if f.Auth.BcryptCost != 0 {
		c.BcryptCost = f.Auth.BcryptCost
	}
	setString(&c.StoreDriver, f.Store.Driver)
	setString(&c.MySQLDSN, f.Store.DSN)
	setString(&c.TokenStore, f.TokenStore)
	setString(&c.RedisAddr, f.Redis.Addr)
	setString(&c.RedisPass, f.Redis.Password)
	if f.Redis.DB != 0 {
		c.RedisDB = f.Redis.DB
	}
	if len(f.CORS.AllowedOrigins) > 0 {
		c.CORSAllowedOrigins = f.CORS.AllowedOrigins
	}
	setString(&c.TokenSweepSchedule, f.TokenSweepSchedule)
	return nil
}

func (c *Config) applyEnv() {
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.SwaggerHost = getEnv("SWAGGER_HOST", c.SwaggerHost)

	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.MySQLDSN = getEnv("STORE_DSN", getEnv("MYSQL_DSN", c.MySQLDSN))
	c.TokenStore = getEnv("TOKEN_STORE", c.TokenStore)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPass = getEnv("REDIS_PASSWORD", c.RedisPass)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AccessTokenLifetime = getEnvMillis("JWT_ACCESS_LIFETIME_MS", c.AccessTokenLifetime)
	c.RefreshTokenLifetime = getEnvMillis("JWT_REFRESH_LIFETIME_MS", c.RefreshTokenLifetime)
	c.RefreshRotation = getEnv("REFRESH_ROTATION", c.RefreshRotation)
	c.LogoutRevokesAll = getEnvBool("LOGOUT_REVOKES_ALL", c.LogoutRevokesAll)
	c.PasswordHasher = getEnv("PASSWORD_HASHER", c.PasswordHasher)
	c.BcryptCost = getEnvInt("BCRYPT_COST", c.BcryptCost)
	c.TokenSweepSchedule = getEnv("TOKEN_SWEEP_SCHEDULE", c.TokenSweepSchedule)
	c.UserCacheTTL = getEnvDuration("USER_CACHE_TTL", c.UserCacheTTL)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret)))
	}
	if c.AccessTokenLifetime <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_LIFETIME_MS must be positive"))
	}
	if c.RefreshTokenLifetime <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_LIFETIME_MS must be positive"))
	}
	if c.RefreshRotation != RotationReuse && c.RefreshRotation != RotationRotate {
		errs = append(errs, fmt.Errorf("REFRESH_ROTATION must be %q or %q, got %q", RotationReuse, RotationRotate, c.RefreshRotation))
	}
	if c.StoreDriver != StoreMySQL && c.StoreDriver != StoreMemory {
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMySQL, StoreMemory, c.StoreDriver))
	}
	if c.StoreDriver == StoreMySQL && c.MySQLDSN == "" {
		errs = append(errs, errors.New("STORE_DSN is required for the mysql driver"))
	}
	if c.TokenStore != TokenStoreRedis && c.TokenStore != TokenStoreSQL {
		errs = append(errs, fmt.Errorf("TOKEN_STORE must be %q or %q, got %q", TokenStoreRedis, TokenStoreSQL, c.TokenStore))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// RotateRefreshTokens reports whether refresh tokens are replaced on every exchange.
func (c *Config) RotateRefreshTokens() bool {
	return c.RefreshRotation == RotationRotate
}

// Development reports whether the service runs in a development environment.
func (c *Config) Development() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
