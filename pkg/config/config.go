package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DBDriver    string `mapstructure:"DB_DRIVER" validate:"required,oneof=postgres sqlite"`
	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	// Staff and CRM shared secrets; JWTSecret signs exchanged staff tokens.
	AdminSecret   string        `mapstructure:"ADMIN_SECRET" validate:"required,min=16"`
	CRMSecret     string        `mapstructure:"CRM_SECRET" validate:"omitempty,min=16"`
	JWTSecret     string        `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	StaffTokenTTL time.Duration `mapstructure:"STAFF_TOKEN_TTL" validate:"required"`

	PortalBaseURL string `mapstructure:"PORTAL_BASE_URL" validate:"required,url"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM" validate:"omitempty,email"`
	SMTPFromName string `mapstructure:"SMTP_FROM_NAME"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT" validate:"required"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET" validate:"required"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	ReminderWindow   time.Duration `mapstructure:"REMINDER_WINDOW" validate:"required"`
	ReminderCron     string        `mapstructure:"REMINDER_CRON" validate:"required"`
	ReminderDedupTTL time.Duration `mapstructure:"REMINDER_DEDUP_TTL"`

	ActivityMode string `mapstructure:"ACTIVITY_MODE" validate:"required,oneof=async queue"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DB_DRIVER",
	"DATABASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"GOMAXPROCS",
	"ADMIN_SECRET",
	"CRM_SECRET",
	"JWT_SECRET",
	"STAFF_TOKEN_TTL",
	"PORTAL_BASE_URL",
	"SMTP_HOST",
	"SMTP_PORT",
	"SMTP_USERNAME",
	"SMTP_PASSWORD",
	"SMTP_FROM",
	"SMTP_FROM_NAME",
	"MINIO_ENDPOINT",
	"MINIO_ACCESS_KEY",
	"MINIO_SECRET_KEY",
	"MINIO_BUCKET",
	"MINIO_USE_SSL",
	"REMINDER_WINDOW",
	"REMINDER_CRON",
	"REMINDER_DEDUP_TTL",
	"ACTIVITY_MODE",
}

var durationKeys = []string{"SHUTDOWN_TIMEOUT", "STAFF_TOKEN_TTL", "REMINDER_WINDOW", "REMINDER_DEDUP_TTL"}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("STAFF_TOKEN_TTL", "12h")
	v.SetDefault("PORTAL_BASE_URL", "http://localhost:3000/portal")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_FROM_NAME", "Onboarding")
	v.SetDefault("MINIO_BUCKET", "onboarding-files")
	v.SetDefault("REMINDER_WINDOW", "72h")
	v.SetDefault("REMINDER_CRON", "0 9 * * *")
	v.SetDefault("REMINDER_DEDUP_TTL", "20h")
	v.SetDefault("ACTIVITY_MODE", "async")

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	for _, key := range durationKeys {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		switch key {
		case "SHUTDOWN_TIMEOUT":
			c.ShutdownTimeout = d
		case "STAFF_TOKEN_TTL":
			c.StaffTokenTTL = d
		case "REMINDER_WINDOW":
			c.ReminderWindow = d
		case "REMINDER_DEDUP_TTL":
			c.ReminderDedupTTL = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}

// SMTPConfigured reports whether outbound mail has enough settings to send.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPPort != "" && c.SMTPFrom != ""
}
