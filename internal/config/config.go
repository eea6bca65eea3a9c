package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server ServerConfig `json:"server"`

	// Database Configuration (preferences, enrollment)
	Database DatabaseConfig `json:"database"`

	// Mongo Configuration (attachment storage)
	Mongo MongoConfig `json:"mongo"`

	// Media Configuration
	Media MediaConfig `json:"media"`

	// Channel Configuration (client side)
	Channel ChannelConfig `json:"channel"`

	// Notification Configuration
	Notification NotificationConfig `json:"notification"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	Environment  string `json:"environment"` // development, staging, production
}

// DatabaseConfig contains MySQL connection configuration
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// MongoConfig contains attachment store configuration
type MongoConfig struct {
	URI          string `json:"uri"`
	DatabaseName string `json:"database_name"`
	Bucket       string `json:"bucket"`
}

// MediaConfig contains the HTTP facade for stored attachments
type MediaConfig struct {
	Port    string `json:"port"`
	BaseURL string `json:"base_url"` // public prefix for served files, e.g. http://localhost:8081
}

// ChannelConfig contains event-channel client configuration
type ChannelConfig struct {
	ServerURL     string        `json:"server_url"` // ws:// endpoint of the event server
	TypingQuiet   time.Duration `json:"typing_quiet"`
	EventBuffer   int           `json:"event_buffer"`
	RedialBackoff time.Duration `json:"redial_backoff"`
}

// NotificationConfig contains notification gating configuration
type NotificationConfig struct {
	TruncateAt int `json:"truncate_at"` // alert body truncation, in runes
}

// Load builds a Config from environment variables with development defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvOrDefault("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvIntOrDefault("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 15),
			Environment:  getEnvOrDefault("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:         getEnvOrDefault("DB_HOST", "localhost"),
			Port:         getEnvOrDefault("DB_PORT", "3306"),
			Username:     getEnvOrDefault("DB_USER", "coursechat"),
			Password:     getEnvOrDefault("DB_PASSWORD", ""),
			DatabaseName: getEnvOrDefault("DB_NAME", "coursechat"),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		},
		Mongo: MongoConfig{
			URI:          getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
			DatabaseName: getEnvOrDefault("MONGO_DB", "coursechat"),
			Bucket:       getEnvOrDefault("MONGO_BUCKET", "attachments"),
		},
		Media: MediaConfig{
			Port:    getEnvOrDefault("MEDIA_PORT", "8081"),
			BaseURL: getEnvOrDefault("MEDIA_BASE_URL", "http://localhost:8081"),
		},
		Channel: ChannelConfig{
			ServerURL:     getEnvOrDefault("CHANNEL_SERVER_URL", "ws://localhost:8080/ws"),
			TypingQuiet:   getEnvDurationOrDefault("TYPING_QUIET", 2*time.Second),
			EventBuffer:   getEnvIntOrDefault("CHANNEL_EVENT_BUFFER", 256),
			RedialBackoff: getEnvDurationOrDefault("CHANNEL_REDIAL_BACKOFF", 2*time.Second),
		},
		Notification: NotificationConfig{
			TruncateAt: getEnvIntOrDefault("NOTIFY_TRUNCATE_AT", 80),
		},
	}
}

// DSN builds the MySQL connection string from the database section.
func (cfg *Config) DSN() string {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DatabaseName,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
