package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int    `validate:"min=1,max=65535"`
	DatabasePath   string `validate:"required"`
	AppEnv         string `validate:"oneof=development production test"`
	JWTSecret      string `validate:"required_if=AppEnv production"`
	TokenTTL       time.Duration
	AllowedOrigins []string `validate:"min=1"`

	LogLevel      string `validate:"oneof=debug info warn error"`
	LogFile       string
	LogMaxSizeMB  int `validate:"min=1,max=1024"`
	LogMaxBackups int `validate:"min=0,max=100"`
	LogMaxAgeDays int `validate:"min=0,max=365"`

	RedisAddr         string
	RedisPassword     string
	RateLimitRequests int           `validate:"min=1"`
	RateLimitWindow   time.Duration `validate:"gt=0"`

	StorageMaxBytes int64 `validate:"gt=0"`
	S3Endpoint      string
	GoogleAPIKey    string

	GoogleTranslateKey string
	LibreTranslateURL  string
	LibreTranslateKey  string
	MyMemoryEnabled    bool
	GeminiAPIKey       string
	GeminiModel        string
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	rateRequests, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}
	rateWindow, err := time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}
	storageMax, err := strconv.ParseInt(getEnv("STORAGE_MAX_BYTES", "52428800"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STORAGE_MAX_BYTES: %w", err)
	}
	logMaxSize, err := strconv.Atoi(getEnv("LOG_MAX_SIZE_MB", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_SIZE_MB: %w", err)
	}
	logMaxBackups, err := strconv.Atoi(getEnv("LOG_MAX_BACKUPS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_BACKUPS: %w", err)
	}
	logMaxAge, err := strconv.Atoi(getEnv("LOG_MAX_AGE_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_AGE_DAYS: %w", err)
	}
	myMemory, err := strconv.ParseBool(getEnv("MYMEMORY_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MYMEMORY_ENABLED: %w", err)
	}

	cfg := &Config{
		ServerPort:     port,
		DatabasePath:   getEnv("DATABASE_PATH", "./annotation-hub.db"),
		AppEnv:         getEnv("APP_ENV", "development"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		TokenTTL:       tokenTTL,
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  logMaxSize,
		LogMaxBackups: logMaxBackups,
		LogMaxAgeDays: logMaxAge,

		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RateLimitRequests: rateRequests,
		RateLimitWindow:   rateWindow,

		StorageMaxBytes: storageMax,
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),

		GoogleTranslateKey: os.Getenv("GOOGLE_TRANSLATE_KEY"),
		LibreTranslateURL:  os.Getenv("LIBRETRANSLATE_URL"),
		LibreTranslateKey:  os.Getenv("LIBRETRANSLATE_KEY"),
		MyMemoryEnabled:    myMemory,
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Development convenience; production refuses to start without a secret.
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}
	return cfg, nil
}

// Validate checks that all fields in Config are valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
