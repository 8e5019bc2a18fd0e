// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP         HTTP
		Log          Log
		Store        Store
		Images       Images
		Segmentation Segmentation
		Redis        Redis
		RabbitMQ     RabbitMQ
		Telegram     Telegram
		RateLimit    RateLimit
		Dedup        Dedup
	}

	HTTP struct {
		Port            string        `env:"PORT" envDefault:"5000"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
		MaxUploadBytes  int64         `env:"HTTP_MAX_UPLOAD_BYTES" envDefault:"20971520"`
	}

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"text"`
	}

	// Store selects the record store. "csv" keeps the flat file layout,
	// "postgres" and "sqlite" go through gorm.
	Store struct {
		Driver  string `env:"STORE_DRIVER" envDefault:"csv"`
		CSVPath string `env:"STORE_CSV_PATH" envDefault:"data/complaints.csv"`
		DSN     string `env:"STORE_DSN"`
	}

	Images struct {
		Driver    string `env:"IMAGES_DRIVER" envDefault:"disk"`
		InputDir  string `env:"IMAGES_INPUT_DIR" envDefault:"data/input_images"`
		OutputDir string `env:"IMAGES_OUTPUT_DIR" envDefault:"data/output_images"`

		S3Endpoint  string `env:"S3_ENDPOINT"`
		S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
		S3AccessKey string `env:"S3_ACCESS_KEY"`
		S3SecretKey string `env:"S3_SECRET_KEY"`
		S3Bucket    string `env:"S3_BUCKET"`
	}

	Segmentation struct {
		URL     string        `env:"SEGMENTATION_URL" envDefault:"http://localhost:8000/segment"`
		Timeout time.Duration `env:"SEGMENTATION_TIMEOUT" envDefault:"30s"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	RabbitMQ struct {
		URL      string `env:"RABBITMQ_URL"`
		Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"complaints"`
	}

	Telegram struct {
		BotToken        string `env:"TELEGRAM_BOT_TOKEN"`
		AuthorityChatID int64  `env:"TELEGRAM_AUTHORITY_CHAT_ID"`
	}

	// RateLimit applies to complaint submissions, per client IP. RPS 0 disables it.
	RateLimit struct {
		RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
		Burst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
	}

	Dedup struct {
		RadiusMeters    float64 `env:"DEDUP_RADIUS_METERS" envDefault:"150"`
		IncludeResolved bool    `env:"DEDUP_INCLUDE_RESOLVED" envDefault:"false"`
	}
)

// New loads .env (if any) and decodes the environment into a Config.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file loaded, using process environment")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the service cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreCSV:
		if c.Store.CSVPath == "" {
			return fmt.Errorf("STORE_CSV_PATH is required for the csv store")
		}
	case StorePostgres, StoreSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("STORE_DSN is required for the %s store", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Images.Driver {
	case ImagesDisk:
	case ImagesS3:
		if c.Images.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 image store")
		}
	default:
		return fmt.Errorf("unknown IMAGES_DRIVER %q", c.Images.Driver)
	}

	if c.Segmentation.Timeout <= 0 {
		return fmt.Errorf("SEGMENTATION_TIMEOUT must be positive")
	}
	if c.Dedup.RadiusMeters <= 0 {
		return fmt.Errorf("DEDUP_RADIUS_METERS must be positive")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.AuthorityChatID == 0 {
		return fmt.Errorf("TELEGRAM_AUTHORITY_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}
