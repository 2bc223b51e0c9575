package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	Mode            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

type DatabaseConfig struct {
	Path string
}

type GitHubConfig struct {
	APIURL string
	// Token is optional; unauthenticated requests are rate limited harder.
	Token           string
	Timeout         time.Duration
	BreakerFailures uint32
}

type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Timeout         time.Duration
	AvatarURLExpiry time.Duration
}

type LogConfig struct {
	Level string
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Mode:            getEnv("GIN_MODE", "release"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 30),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./devfolio.db"),
		},
		GitHub: GitHubConfig{
			APIURL:          getEnv("GITHUB_API_URL", "https://api.github.com/"),
			Token:           getEnv("GITHUB_TOKEN", ""),
			Timeout:         getEnvAsDuration("GITHUB_TIMEOUT", 10*time.Second),
			BreakerFailures: uint32(getEnvAsInt("GITHUB_BREAKER_FAILURES", 5)),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvAsBool("S3_USE_PATH_STYLE", false),
			Timeout:         getEnvAsDuration("STORAGE_TIMEOUT", 10*time.Second),
			AvatarURLExpiry: getEnvAsDuration("AVATAR_URL_EXPIRY", time.Hour),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return AppConfig.Validate()
}

// Validate checks the values the server cannot start without
func (c *Config) Validate() error {
	if c.Storage.Bucket == "" {
		return errors.New("S3_BUCKET is required")
	}
	if c.GitHub.Timeout <= 0 || c.Storage.Timeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Storage.AvatarURLExpiry <= 0 {
		return errors.New("AVATAR_URL_EXPIRY must be positive")
	}
	if c.GitHub.BreakerFailures == 0 {
		return errors.New("GITHUB_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s", "1h")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
