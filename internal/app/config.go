package app

import (
	"os"
	"strconv"
	"time"

	"go-leave/internal/shared/connection"
)

type Config struct {
	Port               string
	DB                 connection.DBConfig
	AutoMigrate        bool
	RedisAddr          string
	KafkaBroker        string
	CORSAllowedOrigins string
	RateLimitRPS       float64
	RateLimitBurst     int
	OutboxPollInterval time.Duration
}

// LoadConfig reads the process environment. godotenv has already merged .env
// into it by the time cmd/* calls this.
func LoadConfig() Config {
	driver := getEnv("DB_DRIVER", connection.DriverPostgres)
	return Config{
		Port: getEnv("PORT", "3000"),
		DB: connection.DBConfig{
			Driver:   driver,
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "leave_mgmt.sqlite3"),
		},
		AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", driver == connection.DriverSQLite),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		KafkaBroker:        os.Getenv("KAFKA_BROKER"),
		CORSAllowedOrigins: os.Getenv("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", 3*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
