package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig is wrapped by every validation failure from Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
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

// PostgresConfig holds DB connection values. An empty DSN keeps principals in memory.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and login parameters.
type AuthConfig struct {
	JWTSecret               string
	TokenTTL                time.Duration
	RevocationSweepInterval time.Duration
	BcryptCost              int
	// Principals is the static directory used when no database is configured,
	// written as comma separated "username|email|bcrypt-hash" entries.
	Principals []PrincipalEntry
}

// PrincipalEntry is one statically configured principal.
type PrincipalEntry struct {
	Username     string
	Email        string
	PasswordHash string
}

// Load reads configuration from environment variables, applying defaults where possible.
// A missing signing secret or an unparsable duration is reported as ErrInvalidConfig.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ttl, err := getEnvAsDuration("AUTH_TOKEN_TTL", time.Minute)
	if err != nil {
		return nil, err
	}
	sweep, err := getEnvAsDuration("AUTH_REVOCATION_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	principals, err := ParsePrincipals(os.Getenv("AUTH_PRINCIPALS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "token-service"),
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
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               os.Getenv("AUTH_JWT_SECRET"),
			TokenTTL:                ttl,
			RevocationSweepInterval: sweep,
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			Principals:              principals,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the service cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: AUTH_JWT_SECRET is required", ErrInvalidConfig)
	}
	if c.Auth.TokenTTL < time.Second {
		return fmt.Errorf("%w: AUTH_TOKEN_TTL must be at least 1s", ErrInvalidConfig)
	}
	if c.Auth.RevocationSweepInterval <= 0 {
		return fmt.Errorf("%w: AUTH_REVOCATION_SWEEP_INTERVAL must be positive", ErrInvalidConfig)
	}
	return nil
}

// ParsePrincipals decodes the AUTH_PRINCIPALS format.
func ParsePrincipals(raw string) ([]PrincipalEntry, error) {
	var entries []PrincipalEntry
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, "|")
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("%w: AUTH_PRINCIPALS entry %q must be username|email|hash", ErrInvalidConfig, item)
		}
		entries = append(entries, PrincipalEntry{
			Username:     parts[0],
			Email:        parts[1],
			PasswordHash: parts[2],
		})
	}
	return entries, nil
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

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return parsed, nil
}
