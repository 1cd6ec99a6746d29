package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv       string `env:"GO_ENV" default:"development"`
	ServiceName string `env:"SERVICE_NAME" default:"librarydesk"`

	// HTTP
	HTTPPort        int           `env:"HTTP_PORT" default:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Access guard
	AuthHeader string `env:"AUTH_HEADER" default:"X-Library-Token"`
	AdminToken string `env:"ADMIN_TOKEN"`
	StaffToken string `env:"STAFF_TOKEN"`

	// Ledger policy
	LoanPeriodDays    int    `env:"LOAN_PERIOD_DAYS" default:"7"`
	LateFeePerDay     int    `env:"LATE_FEE_PER_DAY" default:"2"`
	MissingBookFine   int    `env:"MISSING_BOOK_FINE" default:"500"`
	MissingBookPolicy string `env:"MISSING_BOOK_POLICY" default:"retire"`

	// Membership
	RegistrationRatePerMinute int `env:"REGISTRATION_RATE_PER_MINUTE" default:"60"`

	// Data
	SeedData bool `env:"SEED_DATA" default:"true"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Tracing
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Drills
	DrillTarget string `env:"DRILL_TARGET" default:"http://localhost:8080"`
}

// Development defaults for the shared secrets. They are rejected outside
// development by Validate.
const (
	devAdminToken = "dev-admin-token"
	devStaffToken = "dev-staff-token"
)

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	config := &Config{}

	loadEnvString(&config.GoEnv, "GO_ENV", "development")
	loadEnvString(&config.ServiceName, "SERVICE_NAME", "librarydesk")

	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.ShutdownTimeout, "SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	loadEnvString(&config.AuthHeader, "AUTH_HEADER", "X-Library-Token")
	loadEnvString(&config.AdminToken, "ADMIN_TOKEN", "")
	loadEnvString(&config.StaffToken, "STAFF_TOKEN", "")
	if config.IsDevelopment() {
		if config.AdminToken == "" {
			config.AdminToken = devAdminToken
		}
		if config.StaffToken == "" {
			config.StaffToken = devStaffToken
		}
	}

	if err := loadEnvInt(&config.LoanPeriodDays, "LOAN_PERIOD_DAYS", 7); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.LateFeePerDay, "LATE_FEE_PER_DAY", 2); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.MissingBookFine, "MISSING_BOOK_FINE", 500); err != nil {
		return nil, err
	}
	loadEnvString(&config.MissingBookPolicy, "MISSING_BOOK_POLICY", "retire")

	if err := loadEnvInt(&config.RegistrationRatePerMinute, "REGISTRATION_RATE_PER_MINUTE", 60); err != nil {
		return nil, err
	}

	if err := loadEnvBool(&config.SeedData, "SEED_DATA", true); err != nil {
		return nil, err
	}

	loadEnvString(&config.LogLevel, "LOG_LEVEL", "info")
	loadEnvString(&config.LogFormat, "LOG_FORMAT", "text")
	loadEnvString(&config.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT", "")
	loadEnvString(&config.DrillTarget, "DRILL_TARGET", "http://localhost:8080")

	return config, nil
}

func loadEnvString(target *string, key, defaultValue string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errs []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, "HTTP_PORT must be between 1 and 65535")
	}

	if c.AdminToken == "" || c.StaffToken == "" {
		errs = append(errs, "ADMIN_TOKEN and STAFF_TOKEN are required")
	} else if c.AdminToken == c.StaffToken {
		errs = append(errs, "ADMIN_TOKEN and STAFF_TOKEN must differ")
	}
	if !c.IsDevelopment() && (c.AdminToken == devAdminToken || c.StaffToken == devStaffToken) {
		errs = append(errs, "development tokens may not be used outside development")
	}

	if c.LoanPeriodDays < 1 {
		errs = append(errs, "LOAN_PERIOD_DAYS must be positive")
	}
	if c.LateFeePerDay < 0 || c.MissingBookFine < 0 {
		errs = append(errs, "LATE_FEE_PER_DAY and MISSING_BOOK_FINE must not be negative")
	}
	if !contains([]string{"retire", "restock"}, c.MissingBookPolicy) {
		errs = append(errs, "MISSING_BOOK_POLICY must be one of: retire, restock")
	}
	if c.RegistrationRatePerMinute < 1 {
		errs = append(errs, "REGISTRATION_RATE_PER_MINUTE must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
