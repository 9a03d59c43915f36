package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultDatabaseName is the database every deployment connects to unless DB_NAME overrides it.
const DefaultDatabaseName = "chat"

type Config struct {
	Environment string
	Database    DatabaseConfig
	Chat        ChatConfig
	Telegram    TelegramConfig
	HTTP        HTTPConfig
	Log         LogConfig
}

type DatabaseConfig struct {
	URI            string
	Name           string
	ConnectTimeout time.Duration
}

type ChatConfig struct {
	BaseURL string
}

type TelegramConfig struct {
	// APIEndpoint follows the tgbotapi format: "https://api.telegram.org/bot%s/%s"
	APIEndpoint string
}

type HTTPConfig struct {
	Addr         string
	JWTSecret    string
	RateLimit    float64 // requests per second per token
	RateBurst    int
	MaxBodyBytes int64
}

type LogConfig struct {
	Level string
}

// Load reads .env.<APP_ENV> and .env (when present) into the process
// environment, then builds the Config. Explicit files replace the defaults.
// Variables already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = defaultFiles(os.Getenv("APP_ENV"))
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	timeout, err := getDuration("DB_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	rps, err := getFloat("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, err
	}
	burst, err := getInt("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, err
	}
	maxBody, err := getInt("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}

	return &Config{
		Environment: getEnv("APP_ENV", "development"),
		Database: DatabaseConfig{
			URI:            getEnv("DB_URI", "mongodb://localhost:27017"),
			Name:           getEnv("DB_NAME", DefaultDatabaseName),
			ConnectTimeout: timeout,
		},
		Chat: ChatConfig{
			BaseURL: getEnv("CHAT_BASE_URL", "http://localhost:3000"),
		},
		Telegram: TelegramConfig{
			APIEndpoint: getEnv("TELEGRAM_API_ENDPOINT", "https://api.telegram.org/bot%s/%s"),
		},
		HTTP: HTTPConfig{
			Addr:         getEnv("HTTP_ADDR", "0.0.0.0:8080"),
			JWTSecret:    os.Getenv("JWT_SECRET"),
			RateLimit:    rps,
			RateBurst:    burst,
			MaxBodyBytes: int64(maxBody),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func defaultFiles(env string) []string {
	if env == "" {
		return []string{".env"}
	}
	return []string{".env." + env, ".env"}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
