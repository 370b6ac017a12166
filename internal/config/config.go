package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Memorandum MemorandumConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Client     ClientConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// MemorandumConfig holds the compliance workflow knobs
type MemorandumConfig struct {
	SubsanationDays         int
	MinJustificationLength  int
	SweepInterval           time.Duration
	GenerationInterval      time.Duration
	GenerationLookback      time.Duration
	Timezone                string
	ReferenceCacheTTL       time.Duration
	AdminRequiresDateRange  bool
	MaxAttachmentsPerSubmit int
}

// RedisConfig is optional; an empty Addr disables the Redis cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig is optional; an empty URL disables event fan-out over NATS.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// ClientConfig configures the memorandum store client used by memoctl.
type ClientConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Println("Error loading .env file:", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hris-memorandum"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS"),
	}
	if len(config.App.AllowedOrigins) == 0 {
		config.App.AllowedOrigins = []string{"http://localhost:3000"}
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Memorandum workflow configuration
	memo, err := loadMemorandumConfig()
	if err != nil {
		return nil, err
	}
	config.Memorandum = memo

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// NATS configuration
	config.NATS = NATSConfig{
		URL:           getEnv("NATS_URL", ""),
		SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "hris.memorandum"),
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}
	config.Client = client

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadClient loads only what memoctl needs; it does not require database
// credentials.
func LoadClient() (ClientConfig, MemorandumConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Println("Error loading .env file:", err)
	}
	client, err := loadClientConfig()
	if err != nil {
		return ClientConfig{}, MemorandumConfig{}, err
	}
	memo, err := loadMemorandumConfig()
	if err != nil {
		return ClientConfig{}, MemorandumConfig{}, err
	}
	return client, memo, nil
}

func loadMemorandumConfig() (MemorandumConfig, error) {
	subsanationDays, err := strconv.Atoi(getEnv("MEMORANDUM_SUBSANATION_DAYS", "3"))
	if err != nil {
		return MemorandumConfig{}, fmt.Errorf("invalid MEMORANDUM_SUBSANATION_DAYS: %w", err)
	}
	minLength, err := strconv.Atoi(getEnv("MEMORANDUM_MIN_JUSTIFICATION_LENGTH", "20"))
	if err != nil {
		return MemorandumConfig{}, fmt.Errorf("invalid MEMORANDUM_MIN_JUSTIFICATION_LENGTH: %w", err)
	}
	maxAttachments, err := strconv.Atoi(getEnv("MEMORANDUM_MAX_ATTACHMENTS", "5"))
	if err != nil {
		return MemorandumConfig{}, fmt.Errorf("invalid MEMORANDUM_MAX_ATTACHMENTS: %w", err)
	}
	sweepInterval, err := time.ParseDuration(getEnv("MEMORANDUM_SWEEP_INTERVAL", "1h"))
	if err != nil {
		return MemorandumConfig{}, fmt.Errorf("invalid MEMORANDUM_SWEEP_INTERVAL: %w", err)
	}
	generationInterval, err := time.ParseDuration(getEnv("MEMORANDUM_GENERATION_INTERVAL", "30m"))
	if err != nil {
		return MemorandumConfig{}, fmt.Errorf("invalid MEMORANDUM_GENERATION_INTERVAL: %w", err)
	}
	lookback, err := time.ParseDuration(getEnv("MEMORANDUM_GENERATION_LOOKBACK", "72h"))
	if err != nil {
		return MemorandumConfig{}, fmt.Errorf("invalid MEMORANDUM_GENERATION_LOOKBACK: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("REFERENCE_CACHE_TTL", "15m"))
	if err != nil {
		return MemorandumConfig{}, fmt.Errorf("invalid REFERENCE_CACHE_TTL: %w", err)
	}
	requireRange, err := strconv.ParseBool(getEnv("MEMORANDUM_ADMIN_REQUIRES_DATE_RANGE", "true"))
	if err != nil {
		return MemorandumConfig{}, fmt.Errorf("invalid MEMORANDUM_ADMIN_REQUIRES_DATE_RANGE: %w", err)
	}

	return MemorandumConfig{
		SubsanationDays:         subsanationDays,
		MinJustificationLength:  minLength,
		SweepInterval:           sweepInterval,
		GenerationInterval:      generationInterval,
		GenerationLookback:      lookback,
		Timezone:                getEnv("MEMORANDUM_TIMEZONE", "America/Lima"),
		ReferenceCacheTTL:       cacheTTL,
		AdminRequiresDateRange:  requireRange,
		MaxAttachmentsPerSubmit: maxAttachments,
	}, nil
}

func loadClientConfig() (ClientConfig, error) {
	timeout, err := time.ParseDuration(getEnv("MEMO_API_TIMEOUT", "15s"))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("invalid MEMO_API_TIMEOUT: %w", err)
	}
	retries, err := strconv.Atoi(getEnv("MEMO_API_RETRY_COUNT", "2"))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("invalid MEMO_API_RETRY_COUNT: %w", err)
	}
	return ClientConfig{
		BaseURL:    getEnv("MEMO_API_URL", "http://localhost:8080"),
		Token:      getEnv("MEMO_API_TOKEN", ""),
		Timeout:    timeout,
		RetryCount: retries,
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Memorandum.SubsanationDays <= 0 {
		return fmt.Errorf("MEMORANDUM_SUBSANATION_DAYS must be positive")
	}
	if c.Memorandum.MinJustificationLength <= 0 {
		return fmt.Errorf("MEMORANDUM_MIN_JUSTIFICATION_LENGTH must be positive")
	}
	if _, err := time.LoadLocation(c.Memorandum.Timezone); err != nil {
		return fmt.Errorf("invalid MEMORANDUM_TIMEZONE: %w", err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location resolves the workflow timezone, falling back to UTC.
func (m MemorandumConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string = strings.Split(value, ",")
	return result
}
