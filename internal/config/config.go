package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
	SMTP      SMTPConfig      `mapstructure:",squash"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"SERVER_PORT"`
	Host           string        `mapstructure:"SERVER_HOST"`
	Env            string        `mapstructure:"ENV"`
	ReadTimeout    time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	RequestTimeout time.Duration `mapstructure:"SERVER_REQUEST_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"DATABASE_DRIVER"`
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `mapstructure:"DATABASE_AUTO_MIGRATE"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"REDIS_ENABLED"`
	Host     string        `mapstructure:"REDIS_HOST"`
	Port     string        `mapstructure:"REDIS_PORT"`
	Password string        `mapstructure:"REDIS_PASSWORD"`
	DB       int           `mapstructure:"REDIS_DB"`
	CacheTTL time.Duration `mapstructure:"REDIS_CACHE_TTL"`
}

type SchedulerConfig struct {
	RefreshSpec      string        `mapstructure:"SCHEDULER_REFRESH_SPEC"`
	ReminderSpec     string        `mapstructure:"SCHEDULER_REMINDER_SPEC"`
	Timezone         string        `mapstructure:"SCHEDULER_TIMEZONE"`
	ReminderLeadDays int           `mapstructure:"SCHEDULER_REMINDER_LEAD_DAYS"`
	JobTimeout       time.Duration `mapstructure:"SCHEDULER_JOB_TIMEOUT"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	DefaultInterestRate string `mapstructure:"DEFAULT_INTEREST_RATE"`
	DefaultLoanWeeks    int    `mapstructure:"DEFAULT_LOAN_WEEKS"`
	RenewalMinWeeks     int    `mapstructure:"RENEWAL_MIN_WEEKS"`
	MoneyPlaces         int32  `mapstructure:"MONEY_PLACES"`
	CollectedStatuses   string `mapstructure:"COLLECTED_STATUSES"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"SMTP_HOST"`
	Port        string `mapstructure:"SMTP_PORT"`
	Username    string `mapstructure:"SMTP_USERNAME"`
	Password    string `mapstructure:"SMTP_PASSWORD"`
	SenderEmail string `mapstructure:"SMTP_SENDER_EMAIL"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":                  "8080",
	"SERVER_HOST":                  "0.0.0.0",
	"ENV":                          "development",
	"SERVER_READ_TIMEOUT":          "15s",
	"SERVER_WRITE_TIMEOUT":         "15s",
	"SERVER_REQUEST_TIMEOUT":       "10s",
	"DATABASE_DRIVER":              "postgres",
	"DATABASE_URL":                 "",
	"DATABASE_MAX_OPEN_CONNS":      25,
	"DATABASE_MAX_IDLE_CONNS":      5,
	"DATABASE_CONN_MAX_LIFETIME":   "5m",
	"DATABASE_AUTO_MIGRATE":        true,
	"REDIS_ENABLED":                false,
	"REDIS_HOST":                   "localhost",
	"REDIS_PORT":                   "6379",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"REDIS_CACHE_TTL":              "10m",
	"SCHEDULER_REFRESH_SPEC":       "0 0 0 * * *",
	"SCHEDULER_REMINDER_SPEC":      "0 0 9 * * *",
	"SCHEDULER_TIMEZONE":           "America/Mexico_City",
	"SCHEDULER_REMINDER_LEAD_DAYS": 1,
	"SCHEDULER_JOB_TIMEOUT":        "10m",
	"LOG_LEVEL":                    "info",
	"LOG_FORMAT":                   "json",
	"DEFAULT_INTEREST_RATE":        "40",
	"DEFAULT_LOAN_WEEKS":           domain.DefaultTermWeeks,
	"RENEWAL_MIN_WEEKS":            domain.DefaultRenewalMinWeeks,
	"MONEY_PLACES":                 0,
	"COLLECTED_STATUSES":           strings.Join(domain.DefaultCollectedStatuses, ","),
	"HEALTH_CHECK_TIMEOUT":         "5s",
	"SMTP_HOST":                    "",
	"SMTP_PORT":                    "587",
	"SMTP_USERNAME":                "",
	"SMTP_PASSWORD":                "",
	"SMTP_SENDER_EMAIL":            "",
}

// Load reads configuration from environment variables and an optional .env file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// A missing .env is fine; real environment variables win over the file.
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case repository.DriverPostgres, repository.DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q", repository.DriverPostgres, repository.DriverSQLite)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Business.DefaultLoanWeeks <= 0 {
		return fmt.Errorf("DEFAULT_LOAN_WEEKS must be greater than 0")
	}

	if c.Business.RenewalMinWeeks <= 0 || c.Business.RenewalMinWeeks > c.Business.DefaultLoanWeeks {
		return fmt.Errorf("RENEWAL_MIN_WEEKS must be between 1 and DEFAULT_LOAN_WEEKS")
	}

	if c.Business.MoneyPlaces < 0 {
		return fmt.Errorf("MONEY_PLACES must not be negative")
	}

	rate, err := decimal.NewFromString(c.Business.DefaultInterestRate)
	if err != nil {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must be a valid decimal: %w", err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must not be negative")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Scheduler.RefreshSpec); err != nil {
		return fmt.Errorf("SCHEDULER_REFRESH_SPEC must be a valid cron spec: %w", err)
	}
	if _, err := parser.Parse(c.Scheduler.ReminderSpec); err != nil {
		return fmt.Errorf("SCHEDULER_REMINDER_SPEC must be a valid cron spec: %w", err)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	if c.Redis.Enabled && c.Redis.CacheTTL <= 0 {
		return fmt.Errorf("REDIS_CACHE_TTL must be greater than 0")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetDefaultInterestRate returns the default interest rate as decimal
func (c *Config) GetDefaultInterestRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.DefaultInterestRate)
	return rate
}

// LoanPolicy builds the business policy shared by every service.
func (c *Config) LoanPolicy() domain.LoanPolicy {
	return domain.NewLoanPolicy(
		c.GetDefaultInterestRate(),
		c.Business.DefaultLoanWeeks,
		c.Business.RenewalMinWeeks,
		c.Business.MoneyPlaces,
		strings.Split(c.Business.CollectedStatuses, ","),
	)
}

// Pool returns the connection pool settings of the database.
func (c *Config) Pool() repository.PoolConfig {
	return repository.PoolConfig{
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// RedisAddr returns host:port of the cache.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// SchedulerLocation returns the timezone the cron jobs run in.
func (c *Config) SchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SMTPEnabled reports whether reminder e-mails can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.SenderEmail != ""
}
