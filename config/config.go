package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration
type Config struct {
	Backend BackendConfig
	Storage StorageConfig
	Session SessionConfig
	Server  ServerConfig
	Report  ReportConfig
}

// BackendConfig holds the hosted REST API settings
type BackendConfig struct {
	URL                string // SUPABASE_URL: base URL of the hosted backend
	APIKey             string // SUPABASE_ANON_KEY: static key sent on every request
	HTTPTimeoutSeconds int    // HTTP_TIMEOUT_SECONDS: 0 keeps the transport defaults
}

// StorageConfig selects where attachment payloads are stored
type StorageConfig struct {
	Backend string // STORAGE_BACKEND: "supabase" (default) or "s3"
	Bucket  string // STORAGE_BUCKET

	// S3-compatible settings, used only when Backend is "s3"
	S3Endpoint      string // S3_ENDPOINT
	S3Region        string // S3_REGION
	S3AccessKey     string // S3_ACCESS_KEY
	S3SecretKey     string // S3_SECRET_KEY
	S3PublicBaseURL string // S3_PUBLIC_BASE_URL: prefix for public object URLs
}

// SessionConfig holds session persistence settings
type SessionConfig struct {
	Store     string // SESSION_STORE: "file" (default), "redis" or "mysql"
	FilePath  string // SESSION_FILE
	AdminCode string // ADMIN_CODE: shared admin secret (placeholder, not a security model)

	RedisAddr     string // REDIS_ADDR
	RedisPassword string // REDIS_PASSWORD
	RedisDB       int    // REDIS_DB

	DatabaseURL string // DATABASE_URL: MySQL DSN, takes precedence over DB_* variables
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
}

// ServerConfig holds panel API server configuration
type ServerConfig struct {
	Port string
	Host string
}

// ReportConfig holds report composition defaults
type ReportConfig struct {
	City             string  // REPORT_CITY: fixed city written on every report
	DefaultLatitude  float64 // DEFAULT_LATITUDE: wizard fallback when no location is supplied
	DefaultLongitude float64 // DEFAULT_LONGITUDE
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:                strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
			APIKey:             os.Getenv("SUPABASE_ANON_KEY"),
			HTTPTimeoutSeconds: getEnvInt("HTTP_TIMEOUT_SECONDS", 0),
		},
		Storage: StorageConfig{
			Backend:         getEnv("STORAGE_BACKEND", "supabase"),
			Bucket:          getEnv("STORAGE_BUCKET", "report-files"),
			S3Endpoint:      os.Getenv("S3_ENDPOINT"),
			S3Region:        getEnv("S3_REGION", "us-east-1"),
			S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
			S3PublicBaseURL: strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/"),
		},
		Session: SessionConfig{
			Store:         getEnv("SESSION_STORE", "file"),
			FilePath:      getEnv("SESSION_FILE", ".session.json"),
			AdminCode:     getEnv("ADMIN_CODE", "ADMIN2024"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			DatabaseURL:   os.Getenv("DATABASE_URL"),
			DBHost:        getEnv("DB_HOST", "localhost"),
			DBPort:        getEnv("DB_PORT", "3306"),
			DBUser:        os.Getenv("DB_USER"),
			DBPassword:    os.Getenv("DB_PASSWORD"),
			DBName:        os.Getenv("DB_NAME"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "127.0.0.1"),
			Port: getEnv("PORT", getEnv("SERVER_PORT", "8080")),
		},
		Report: ReportConfig{
			City:             getEnv("REPORT_CITY", "Tarija"),
			DefaultLatitude:  getEnvFloat("DEFAULT_LATITUDE", -21.5329),
			DefaultLongitude: getEnvFloat("DEFAULT_LONGITUDE", -64.7294),
		},
	}
}

// MySQLDSN builds the session database DSN (UTC for consistent timestamps)
func (c SessionConfig) MySQLDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName +
		"?parseTime=true&charset=utf8mb4&loc=UTC"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
