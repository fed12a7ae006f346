package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Path string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	// RequestsPerMinute applies per client to note writes and lint. Zero
	// disables limiting.
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("MARKNOTES_PORT", "5200"),
		},
		Database: DatabaseConfig{
			Path: getEnv("MARKNOTES_DB_PATH", "marknotes.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("MARKNOTES_CORS_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("MARKNOTES_RATE_LIMIT", 120),
		},
		Logging: LoggingConfig{
			Level:  getEnv("MARKNOTES_LOG_LEVEL", "info"),
			Format: getEnv("MARKNOTES_LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database path is required")
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("invalid rate limit %d", c.RateLimit.RequestsPerMinute)
	}
	return nil
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

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSuffix(strings.TrimSpace(part), "/"); part != "" {
			out = append(out, part)
		}
	}
	return out
}
