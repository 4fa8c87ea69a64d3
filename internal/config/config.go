package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token formats accepted by AUTH_TOKEN_FORMAT
const (
	TokenFormatJWT    = "jwt"
	TokenFormatPaseto = "paseto"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Email     EmailConfig
	Media     MediaConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string
	AutoMigrate     bool
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	TokenFormat string
	// HS256 secret used when TokenFormat is jwt
	JWTSecret []byte
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey       []byte
	TokenTTL        time.Duration
	VerificationTTL time.Duration
	// Shared secret for the sweep endpoints
	MaintenanceKey string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
	FrontendURL  string // Frontend URL for verification links
}

type MediaConfig struct {
	Endpoint      string // empty for AWS, set for MinIO/R2
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	Folder        string
	MaxUploadSize int64
}

type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
			AutoMigrate:     getBoolEnv("AUTO_MIGRATE", false),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenFormat:     strings.ToLower(getEnv("AUTH_TOKEN_FORMAT", TokenFormatJWT)),
			JWTSecret:       []byte(getEnv("JWT_SECRET", "")),
			PasetoKey:       []byte(getEnv("PASETO_KEY", "")),
			TokenTTL:        getDurationEnv("TOKEN_TTL", 24*time.Hour),
			VerificationTTL: getDurationEnv("VERIFICATION_TTL", 30*time.Minute),
			MaintenanceKey:  getEnv("MAINTENANCE_KEY", ""),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			FromEmail:    getEnv("SMTP_FROM", ""),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Media: MediaConfig{
			Endpoint:      getEnv("MEDIA_ENDPOINT", ""),
			Region:        getEnv("MEDIA_REGION", "us-east-1"),
			Bucket:        getEnv("MEDIA_BUCKET", "task-api"),
			AccessKey:     getEnv("MEDIA_ACCESS_KEY", ""),
			SecretKey:     getEnv("MEDIA_SECRET_KEY", ""),
			PublicBaseURL: getEnv("MEDIA_PUBLIC_URL", ""),
			Folder:        getEnv("MEDIA_FOLDER", "tasks"),
			MaxUploadSize: int64(getIntEnv("MEDIA_MAX_UPLOAD_BYTES", 5<<20)),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv("RATE_LIMIT_ENABLED", true),
			MaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 10),
			Window:      getDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
		},
	}

	if cfg.Email.FromEmail == "" {
		cfg.Email.FromEmail = cfg.Email.SMTPUser
	}

	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that do not
// serve HTTP.
func LoadDatabase() DatabaseConfig {
	_ = godotenv.Load()
	return loadDatabase()
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           getEnv("DB_PORT", "5432"),
		User:           getEnv("DB_USER", "postgres"),
		Password:       getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "taskapi"),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
	}
}

func (c *AuthConfig) validate() error {
	switch c.TokenFormat {
	case TokenFormatJWT:
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
		}
	case TokenFormatPaseto:
		// v4.local needs a 32 byte key
		if len(c.PasetoKey) != 32 {
			return fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.PasetoKey))
		}
	default:
		return fmt.Errorf("unsupported AUTH_TOKEN_FORMAT %q", c.TokenFormat)
	}

	if c.MaintenanceKey == "" {
		return fmt.Errorf("MAINTENANCE_KEY is required")
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return b
}

// getDurationEnv reads a number of seconds
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
