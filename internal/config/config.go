package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// DefaultDatabaseName names the per-folder subdirectory holding the store and thumbnails.
	DefaultDatabaseName = "Slideshow.catalog"
	// FilesystemOrigin is the uploadedFrom label for images discovered on disk.
	FilesystemOrigin = "Filesystem"
)

type Config struct {
	Port           int
	ServiceName    string
	ImageDirectory string
	DatabaseName   string
	LogDirectory   string
	WatchFolder    bool
	ThumbnailSize  int
	MaxUploadMB    int

	// Tracing; empty endpoint disables export
	OTLPEndpoint string

	// Optional upload mirror
	MinIOEndpoint   string
	MinIOAccessKey  string
	MinIOSecretKey  string
	MinIOBucketName string
	MinIOUseSSL     bool

	// Optional shared submission set; empty host keeps it in memory
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	SeenTTLHours  int
}

// Load reads an optional .env file and then the environment, falling back to defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnvAsInt("PORT", 8082),
		ServiceName:    getEnv("SERVICE_NAME", "slideshow"),
		ImageDirectory: getEnv("IMAGE_DIR", defaultImageDirectory()),
		DatabaseName:   getEnv("DATABASE_NAME", DefaultDatabaseName),
		LogDirectory:   getEnv("LOG_DIR", filepath.Join(".", "logs")),
		WatchFolder:    getEnvAsBool("WATCH_FOLDER", true),
		ThumbnailSize:  getEnvAsInt("THUMBNAIL_SIZE", 100),
		MaxUploadMB:    getEnvAsInt("MAX_UPLOAD_MB", 50),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),

		MinIOEndpoint:   getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinIOBucketName: getEnv("MINIO_BUCKET_NAME", "slideshow"),
		MinIOUseSSL:     getEnvAsBool("MINIO_USE_SSL", false),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		SeenTTLHours:  getEnvAsInt("SEEN_TTL_HOURS", 24),
	}
}

// GetRedisAddr returns the Redis address, or "" when Redis is not configured.
func (c *Config) GetRedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// GetMaxUploadBytes returns the request body limit for uploads.
func (c *Config) GetMaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func defaultImageDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "images")
	}
	return filepath.Join(home, "Pictures")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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
