package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const defaultSecret = "change-me"

type Config struct {
	Port          string        `validate:"required,numeric"`
	DBAdapter     string        `validate:"oneof=postgres sqlite memory"`
	SQLiteFile    string
	MigrationsDir string        `validate:"required"`
	JwtSecret     string        `validate:"required"`
	JwtExpiry     time.Duration `validate:"gt=0"`
	BcryptCost    int           `validate:"min=4,max=31"`
	ClientOrigin  string        `validate:"required"`
	LogLevel      string        `validate:"oneof=debug info warn warning error"`
	LogDev        bool
	LogFile       string
	Env           string
	// PostgreSQL connection settings
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// ParseExpiry reads a token lifetime. It accepts Go durations ("12h"),
// a day count ("1d", "7d") or a bare number of seconds ("3600").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty expiry")
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid expiry %q", s)
	}
	return d, nil
}

func New() (*Config, error) {
	c := &Config{
		Port:          getenv("PORT", "8080"),
		DBAdapter:     getenv("DB_ADAPTER", "postgres"),
		SQLiteFile:    getenv("SQLITE_FILE", "./data/vehicle_stats.db"),
		MigrationsDir: getenv("MIGRATIONS_DIR", "./migrations"),
		JwtSecret:     getenv("JWT_SECRET", defaultSecret),
		ClientOrigin:  getenv("CLIENT_ORIGIN", "*"),
		LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogDev:        os.Getenv("LOG_DEV") == "1",
		LogFile:       os.Getenv("LOG_FILE"),
		Env:           getenv("ENV", getenv("NODE_ENV", "")),
		// PostgreSQL settings
		PostgresDSN:      getenv("POSTGRES_DSN", getenv("DATABASE_URL", "")),
		PostgresHost:     getenv("POSTGRES_HOST", getenv("DB_HOST", "localhost")),
		PostgresPort:     getenv("POSTGRES_PORT", getenv("DB_PORT", "5432")),
		PostgresUser:     getenv("POSTGRES_USER", getenv("DB_USER", "vehicle")),
		PostgresPassword: getenv("POSTGRES_PASSWORD", getenv("DB_PASSWORD", "")),
		PostgresDB:       getenv("POSTGRES_DB", getenv("DB_NAME", "vehicle_stats")),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", getenv("DB_SSLMODE", "disable")),
	}

	expiry, err := ParseExpiry(getenv("JWT_EXPIRY", "1d"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRY: %w", err)
	}
	c.JwtExpiry = expiry

	cost, err := strconv.Atoi(getenv("BCRYPT_COST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	c.BcryptCost = cost

	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.DBAdapter == "postgres" {
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	}

	if c.DBAdapter == "sqlite" && c.SQLiteFile == "" {
		return nil, errors.New("SQLITE_FILE must be set when DB_ADAPTER=sqlite")
	}

	if c.IsProduction() {
		if c.JwtSecret == defaultSecret {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		if c.BcryptCost < 10 {
			return nil, errors.New("BCRYPT_COST must be at least 10 in production")
		}
	}

	return c, nil
}
