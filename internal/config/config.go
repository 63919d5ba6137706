package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	User                    string `yaml:"user"`
	Password                string `yaml:"password"`
	Database                string `yaml:"database"`
	SSLMode                 string `yaml:"ssl_mode"`
	MaxOpenConns            int    `yaml:"max_open_conns"`
	MaxIdleConns            int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes  int    `yaml:"conn_max_lifetime_minutes"`
	StatementTimeoutSeconds int    `yaml:"statement_timeout_seconds"`
	LockTimeoutSeconds      int    `yaml:"lock_timeout_seconds"`
}

// LedgerConfig contains rental pricing and retry settings
type LedgerConfig struct {
	TimeZone        string `yaml:"time_zone"` // IANA name, days are counted in this zone
	RetryAttempts   int    `yaml:"retry_attempts"`
	RetryBackoffMs  int    `yaml:"retry_backoff_ms"`
	StaleRentalDays int    `yaml:"stale_rental_days"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	DailySummary string `yaml:"daily_summary"`
	StaleRentals string `yaml:"stale_rentals"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, when present, is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}
	if val := os.Getenv("DB_LOCK_TIMEOUT_SECONDS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.LockTimeoutSeconds)
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("SERVER_GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Ledger
	if val := os.Getenv("LEDGER_TIME_ZONE"); val != "" {
		c.Ledger.TimeZone = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 15
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 3
	}
	if c.Database.ConnMaxLifetimeMinutes == 0 {
		c.Database.ConnMaxLifetimeMinutes = 30
	}
	if c.Database.StatementTimeoutSeconds == 0 {
		c.Database.StatementTimeoutSeconds = 30
	}
	if c.Database.LockTimeoutSeconds == 0 {
		c.Database.LockTimeoutSeconds = 10
	}
	if c.Database.LockTimeoutSeconds < 0 || c.Database.StatementTimeoutSeconds < 0 {
		return fmt.Errorf("database timeouts must not be negative")
	}

	if c.Ledger.TimeZone == "" {
		c.Ledger.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(c.Ledger.TimeZone); err != nil {
		return fmt.Errorf("invalid ledger time zone %q: %w", c.Ledger.TimeZone, err)
	}
	if c.Ledger.RetryAttempts == 0 {
		c.Ledger.RetryAttempts = 3
	}
	if c.Ledger.RetryAttempts < 1 {
		return fmt.Errorf("ledger retry attempts must be at least 1")
	}
	if c.Ledger.RetryBackoffMs == 0 {
		c.Ledger.RetryBackoffMs = 100
	}
	if c.Ledger.StaleRentalDays == 0 {
		c.Ledger.StaleRentalDays = 30
	}

	// Scheduler defaults
	if c.Scheduler.DailySummary == "" {
		c.Scheduler.DailySummary = "0 0 6 * * *" // 6 AM daily
	}
	if c.Scheduler.StaleRentals == "" {
		c.Scheduler.StaleRentals = "0 30 6 * * *" // 6:30 AM daily
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address, or "" when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// Location returns the ledger's reference time zone. Validate has already
// checked the name, so a failure here falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ledger.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LockTimeout bounds how long a transaction waits for a row lock
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Database.LockTimeoutSeconds) * time.Second
}

// StatementTimeout bounds any single statement inside a transaction
func (c *Config) StatementTimeout() time.Duration {
	return time.Duration(c.Database.StatementTimeoutSeconds) * time.Second
}

func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Ledger.RetryBackoffMs) * time.Millisecond
}

func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.Database.ConnMaxLifetimeMinutes) * time.Minute
}

func (c *Config) StaleRentalAge() time.Duration {
	return time.Duration(c.Ledger.StaleRentalDays) * 24 * time.Hour
}
