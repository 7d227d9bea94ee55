package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MinJWTSecretLength is the minimum signing secret size in bytes (256 bits).
	MinJWTSecretLength = 32
	// MinJWTExpirationMillis is the smallest accepted token TTL.
	MinJWTExpirationMillis = 60000

	defaultPublicPaths = "/api/auth/login,/api/auth/validate,/health,/info,/docs"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret              string
	JWTExpirationMillis    int64
	JWTIssuer              string
	JWTAudience            string
	BcryptCost             int
	PublicPaths            []string
	LoginMaxFailedAttempts int
	LoginLockoutMinutes    int
}

// ConfigurationError reports a setting that prevents the service from starting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	expiration, err := strconv.ParseInt(getEnv("JWT_EXPIRATION", "86400000"), 10, 64)
	if err != nil {
		return nil, &ConfigurationError{Key: "JWT_EXPIRATION", Reason: "must be an integer number of milliseconds"}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "user-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              os.Getenv("JWT_SECRET"),
			JWTExpirationMillis:    expiration,
			JWTIssuer:              getEnv("JWT_ISSUER", "user-service"),
			JWTAudience:            getEnv("JWT_AUDIENCE", "user-service-api"),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 10),
			PublicPaths:            getEnvAsList("AUTH_PUBLIC_PATHS", defaultPublicPaths),
			LoginMaxFailedAttempts: getEnvAsInt("AUTH_LOGIN_MAX_FAILED_ATTEMPTS", 5),
			LoginLockoutMinutes:    getEnvAsInt("AUTH_LOGIN_LOCKOUT_MINUTES", 15),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service must not start with.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return &ConfigurationError{
			Key:    "JWT_SECRET",
			Reason: fmt.Sprintf("must be at least %d bytes, got %d", MinJWTSecretLength, len(c.Auth.JWTSecret)),
		}
	}
	if c.Auth.JWTExpirationMillis < MinJWTExpirationMillis {
		return &ConfigurationError{
			Key:    "JWT_EXPIRATION",
			Reason: fmt.Sprintf("must be at least %d ms, got %d", MinJWTExpirationMillis, c.Auth.JWTExpirationMillis),
		}
	}
	if strings.TrimSpace(c.Auth.JWTIssuer) == "" {
		return &ConfigurationError{Key: "JWT_ISSUER", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.Auth.JWTAudience) == "" {
		return &ConfigurationError{Key: "JWT_AUDIENCE", Reason: "must not be empty"}
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenTTL returns the JWT lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.JWTExpirationMillis) * time.Millisecond
}

// LoginLockout returns how long failed login attempts are remembered.
func (a AuthConfig) LoginLockout() time.Duration {
	return time.Duration(a.LoginLockoutMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
