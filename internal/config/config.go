package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultHTTPAddr = ":8080"
	defaultDBName   = "farmlok"
	defaultRedisURL = "redis://localhost:6379"

	defaultTokenTTL        = 24 * time.Hour
	defaultProductCacheTTL = 5 * time.Minute
	defaultWeatherCacheTTL = time.Hour

	defaultRateLimitRequests = 20
	defaultRateLimitWindow   = 10 * time.Minute

	defaultShutdownTimeout   = 10 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMongoPingTimeout  = 5 * time.Second
)

type Config struct {
	MongoURI string
	DBName   string
	RedisURL string
	// RabbitMQURL is optional; empty disables event publishing.
	RabbitMQURL string
	HTTPAddr    string

	JWTSecret string
	TokenTTL  time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	WeatherAPIKey string

	ProductCacheTTL time.Duration
	WeatherCacheTTL time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	MongoPingTimeout  time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		MongoURI:    getEnv("MONGO_URI", ""),
		DBName:      getEnv("DB_NAME", defaultDBName),
		RedisURL:    getEnv("REDIS_URL", defaultRedisURL),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),
		HTTPAddr:    getEnv("HTTP_ADDR", defaultHTTPAddr),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getDuration("TOKEN_TTL", defaultTokenTTL),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),

		WeatherAPIKey: getEnv("WEATHER_API_KEY", ""),

		ProductCacheTTL: getDuration("PRODUCT_CACHE_TTL", defaultProductCacheTTL),
		WeatherCacheTTL: getDuration("WEATHER_CACHE_TTL", defaultWeatherCacheTTL),

		RateLimitRequests: getInt("RATE_LIMIT_REQUESTS", defaultRateLimitRequests),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", defaultRateLimitWindow),

		ShutdownTimeout:   defaultShutdownTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MongoPingTimeout:  defaultMongoPingTimeout,
	}

	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
