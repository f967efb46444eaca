package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	DatabaseURL    string
	RedisURL       string
	NATSURL        string
	JWTSecret      string
	CORSOrigins    string
	AIBaseURL      string
	AIAPIKey       string
	AIMaxTokens    int
	AITemperature  float64
	MaxUploadMB    int
	BatchWorkers   int
	BatchRetries   int
	BatchBackoff   time.Duration
	ProgressTTL    time.Duration
	RequestTimeout time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("RUBRIQ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Rubriq API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.retries", 3)
	v.SetDefault("batch.backoff", "2s")
	v.SetDefault("progress.ttl", "10m")
	v.SetDefault("request.timeout", "90s")

	backoff, err := time.ParseDuration(v.GetString("batch.backoff"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid batch backoff: %w", err)
	}

	progressTTL, err := time.ParseDuration(v.GetString("progress.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid progress ttl: %w", err)
	}

	requestTimeout, err := time.ParseDuration(v.GetString("request.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid request timeout: %w", err)
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		AppPort:        v.GetString("app.port"),
		DatabaseURL:    v.GetString("database.url"),
		RedisURL:       v.GetString("redis.url"),
		NATSURL:        v.GetString("nats.url"),
		JWTSecret:      v.GetString("jwt.secret"),
		CORSOrigins:    v.GetString("cors.origins"),
		AIBaseURL:      v.GetString("ai.base_url"),
		AIAPIKey:       v.GetString("ai.api_key"),
		AIMaxTokens:    v.GetInt("ai.max_tokens"),
		AITemperature:  v.GetFloat64("ai.temperature"),
		MaxUploadMB:    v.GetInt("max_upload_mb"),
		BatchWorkers:   v.GetInt("batch.workers"),
		BatchRetries:   v.GetInt("batch.retries"),
		BatchBackoff:   backoff,
		ProgressTTL:    progressTTL,
		RequestTimeout: requestTimeout,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 4
	}

	if cfg.BatchRetries <= 0 {
		cfg.BatchRetries = 3
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}

	return cfg, nil
}
