package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	WhatsApp WhatsAppConfig
	Scraper  ScraperConfig
	Schedule ScheduleConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers        []string
	TopicForecasts string
	TopicMatches   string
	NumPartitions  int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type WhatsAppConfig struct {
	GatewayURL string
	Token      string
	From       string
	Timeout    time.Duration
}

type ScraperConfig struct {
	BaseURL      string
	RequestDelay time.Duration
	FetchTimeout time.Duration
	RefreshEvery time.Duration
	UserAgent    string
}

type ScheduleConfig struct {
	DailyTime string // HH:MM, local time of the daily sweep
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "surf_user"),
			Password: getEnv("DB_PASSWORD", "surf_pass"),
			DBName:   getEnv("DB_NAME", "surf_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicForecasts: getEnv("KAFKA_TOPIC_FORECASTS", "surf.forecasts.raw"),
			TopicMatches:   getEnv("KAFKA_TOPIC_MATCHES", "surf.alerts.matches"),
			NumPartitions:  getEnvAsInt("KAFKA_NUM_PARTITIONS", 10),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "alerts@tideraider.com"),
		},
		WhatsApp: WhatsAppConfig{
			GatewayURL: getEnv("WHATSAPP_GATEWAY_URL", ""),
			Token:      getEnv("WHATSAPP_TOKEN", ""),
			From:       getEnv("WHATSAPP_FROM", ""),
			Timeout:    getEnvAsDuration("WHATSAPP_TIMEOUT", 15*time.Second),
		},
		Scraper: ScraperConfig{
			BaseURL:      getEnv("SCRAPER_BASE_URL", "https://forecasts.example.com"),
			RequestDelay: getEnvAsDuration("SCRAPER_REQUEST_DELAY", 5*time.Second),
			FetchTimeout: getEnvAsDuration("SCRAPER_FETCH_TIMEOUT", 30*time.Second),
			RefreshEvery: getEnvAsDuration("SCRAPER_REFRESH_EVERY", 6*time.Hour),
			UserAgent:    getEnv("SCRAPER_USER_AGENT", "tide-raider/1.0"),
		},
		Schedule: ScheduleConfig{
			DailyTime: getEnv("SCHEDULE_DAILY_TIME", "06:00"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
