package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/validator"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Source   SourceConfig   `yaml:"source"`
	Sync     SyncConfig     `yaml:"sync"`
	API      APIConfig      `yaml:"api"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int    `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

type DatabaseConfig struct {
	Driver         string        `yaml:"driver"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	SSLMode        string        `yaml:"sslmode"`
	SQLitePath     string        `yaml:"sqlite_path"`
	MaxConns       int32         `yaml:"max_conns"`
	ConnectRetries int           `yaml:"connect_retries"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
}

// SourceConfig describes the remote time-and-attendance API.
type SourceConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	PageSize       int           `yaml:"page_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	Timezone       string        `yaml:"timezone"`
}

// SyncConfig drives a single sync cycle.
type SyncConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	LookbackDays int           `yaml:"lookback_days"`
	CycleTimeout time.Duration `yaml:"cycle_timeout"`
	Interval     time.Duration `yaml:"interval"`
	MaxWorkHours float64       `yaml:"max_work_hours"`
}

// APIConfig holds credentials for callers of this service.
type APIConfig struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl"`
}

// Load builds the configuration from an optional YAML file (CONFIG_FILE), the .env file
// and the process environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	config := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, config); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Defaults returns the built-in configuration before any file or environment overrides.
func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Port:     8000,
			Env:      "development",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Name:           "attendance_sync",
			SSLMode:        "disable",
			SQLitePath:     "attendance_sync.db",
			MaxConns:       10,
			ConnectRetries: 3,
			QueryTimeout:   30 * time.Second,
		},
		Source: SourceConfig{
			PageSize:       200,
			RequestTimeout: 30 * time.Second,
			MaxRetries:     3,
			Timezone:       "UTC",
		},
		Sync: SyncConfig{
			BatchSize:    500,
			LookbackDays: 30,
			CycleTimeout: 10 * time.Minute,
			MaxWorkHours: 8.5,
		},
		API: APIConfig{
			TokenTTL: "1h",
		},
	}
}

func loadYAML(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// ${VAR} placeholders are substituted from the environment before parsing
	content := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

func applyEnv(config *Config) error {
	var err error

	// Application configuration
	if config.App.Port, err = getEnvInt("APP_PORT", config.App.Port); err != nil {
		return err
	}
	config.App.Env = getEnv("APP_ENV", config.App.Env)
	config.App.LogLevel = getEnv("LOG_LEVEL", config.App.LogLevel)
	config.App.LogFile = getEnv("LOG_FILE", config.App.LogFile)

	// Database configuration
	config.Database.Driver = getEnv("DB_DRIVER", config.Database.Driver)
	config.Database.Host = getEnv("DB_HOST", config.Database.Host)
	if config.Database.Port, err = getEnvInt("DB_PORT", config.Database.Port); err != nil {
		return err
	}
	config.Database.User = getEnv("DB_USER", config.Database.User)
	config.Database.Password = getEnv("DB_PASSWORD", config.Database.Password)
	config.Database.Name = getEnv("DB_NAME", config.Database.Name)
	config.Database.SSLMode = getEnv("DB_SSL_MODE", config.Database.SSLMode)
	config.Database.SQLitePath = getEnv("DB_SQLITE_PATH", config.Database.SQLitePath)
	maxConns, err := getEnvInt("DB_MAX_CONNS", int(config.Database.MaxConns))
	if err != nil {
		return err
	}
	config.Database.MaxConns = int32(maxConns)
	if config.Database.ConnectRetries, err = getEnvInt("DB_CONNECT_RETRIES", config.Database.ConnectRetries); err != nil {
		return err
	}
	if config.Database.QueryTimeout, err = getEnvDuration("DB_QUERY_TIMEOUT", config.Database.QueryTimeout); err != nil {
		return err
	}

	// Remote source configuration
	config.Source.BaseURL = strings.TrimRight(getEnv("SOURCE_BASE_URL", config.Source.BaseURL), "/")
	config.Source.Username = getEnv("SOURCE_USERNAME", config.Source.Username)
	config.Source.Password = getEnv("SOURCE_PASSWORD", config.Source.Password)
	if config.Source.PageSize, err = getEnvInt("SOURCE_PAGE_SIZE", config.Source.PageSize); err != nil {
		return err
	}
	if config.Source.RequestTimeout, err = getEnvDuration("SOURCE_REQUEST_TIMEOUT", config.Source.RequestTimeout); err != nil {
		return err
	}
	if config.Source.MaxRetries, err = getEnvInt("SOURCE_MAX_RETRIES", config.Source.MaxRetries); err != nil {
		return err
	}
	config.Source.Timezone = getEnv("SOURCE_TIMEZONE", config.Source.Timezone)

	// Sync configuration
	if config.Sync.BatchSize, err = getEnvInt("SYNC_BATCH_SIZE", config.Sync.BatchSize); err != nil {
		return err
	}
	if config.Sync.LookbackDays, err = getEnvInt("SYNC_LOOKBACK_DAYS", config.Sync.LookbackDays); err != nil {
		return err
	}
	if config.Sync.CycleTimeout, err = getEnvDuration("SYNC_CYCLE_TIMEOUT", config.Sync.CycleTimeout); err != nil {
		return err
	}
	if config.Sync.Interval, err = getEnvDuration("SYNC_INTERVAL", config.Sync.Interval); err != nil {
		return err
	}
	if config.Sync.MaxWorkHours, err = getEnvFloat("SYNC_MAX_WORK_HOURS", config.Sync.MaxWorkHours); err != nil {
		return err
	}

	// API credentials
	config.API.Username = getEnv("API_USERNAME", config.API.Username)
	config.API.Password = getEnv("API_PASSWORD", config.API.Password)
	config.API.JWTSecret = getEnv("JWT_SECRET_KEY", config.API.JWTSecret)
	config.API.TokenTTL = getEnv("JWT_ACCESS_EXPIRATION_TIME", config.API.TokenTTL)

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs validator.ValidationErrors

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Password == "" {
			errs = append(errs, validator.ValidationError{Field: "DB_PASSWORD", Message: "is required"})
		}
	case "sqlite":
		if validator.IsEmpty(c.Database.SQLitePath) {
			errs = append(errs, validator.ValidationError{Field: "DB_SQLITE_PATH", Message: "is required"})
		}
	default:
		errs = append(errs, validator.ValidationError{Field: "DB_DRIVER", Message: "must be postgres or sqlite"})
	}

	if validator.IsEmpty(c.Source.BaseURL) {
		errs = append(errs, validator.ValidationError{Field: "SOURCE_BASE_URL", Message: "is required"})
	}
	if validator.IsEmpty(c.Source.Username) {
		errs = append(errs, validator.ValidationError{Field: "SOURCE_USERNAME", Message: "is required"})
	}
	if c.Source.PageSize <= 0 {
		errs = append(errs, validator.ValidationError{Field: "SOURCE_PAGE_SIZE", Message: "must be positive"})
	}
	if _, err := time.LoadLocation(c.Source.Timezone); err != nil {
		errs = append(errs, validator.ValidationError{Field: "SOURCE_TIMEZONE", Message: "is not a known time zone"})
	}
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, validator.ValidationError{Field: "SYNC_BATCH_SIZE", Message: "must be positive"})
	}
	if c.Sync.LookbackDays <= 0 {
		errs = append(errs, validator.ValidationError{Field: "SYNC_LOOKBACK_DAYS", Message: "must be positive"})
	}
	if c.Sync.MaxWorkHours <= 0 {
		errs = append(errs, validator.ValidationError{Field: "SYNC_MAX_WORK_HOURS", Message: "must be positive"})
	}
	if validator.IsEmpty(c.API.Username) || validator.IsEmpty(c.API.Password) {
		errs = append(errs, validator.ValidationError{Field: "API_USERNAME", Message: "API_USERNAME and API_PASSWORD are required"})
	}
	if c.API.JWTSecret == "" {
		errs = append(errs, validator.ValidationError{Field: "JWT_SECRET_KEY", Message: "is required"})
	}
	if _, err := time.ParseDuration(c.API.TokenTTL); err != nil {
		errs = append(errs, validator.ValidationError{Field: "JWT_ACCESS_EXPIRATION_TIME", Message: "must be a duration"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SourceLocation returns the zone used for punch times that carry no offset.
func (c *Config) SourceLocation() *time.Location {
	loc, err := time.LoadLocation(c.Source.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
