package config

import (
	"fmt"
	"os"
	"time"

	"multichat/internal/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Providers ProviderConfig
	Proxy     ProxyConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret       []byte
	TokenExpiration time.Duration
}

// ProviderConfig holds the server-side credentials and endpoints for the
// upstream chat-completion providers. Keys are never sent to clients.
type ProviderConfig struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	XAIAPIKey     string
	XAIBaseURL    string
}

// ProxyConfig holds the completion proxy endpoint the orchestrator calls.
type ProxyConfig struct {
	URL string
}

// LoadConfig loads and validates application configuration from environment
func LoadConfig() (*AppConfig, error) {
	config := &AppConfig{}

	config.Server = ServerConfig{
		Port: getEnvOrDefault("SERVER_PORT", "8080"),
	}

	config.Database = DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "postgres"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		User:     getEnvOrDefault("DB_USER", "postgres"),
		Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
		Name:     getEnvOrDefault("DB_NAME", "multichat"),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable must be set")
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters (current length: %d)", len(jwtSecret))
	}

	config.Auth = AuthConfig{
		JWTSecret:       []byte(jwtSecret),
		TokenExpiration: getEnvAsDuration("JWT_TOKEN_EXPIRATION", 24*time.Hour),
	}

	config.Providers = ProviderConfig{
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		XAIAPIKey:     os.Getenv("XAI_API_KEY"),
		XAIBaseURL:    getEnvOrDefault("XAI_BASE_URL", "https://api.x.ai/v1"),
	}
	if config.Providers.OpenAIAPIKey == "" {
		logger.Log.Warn("OPENAI_API_KEY environment variable not set")
	}
	if config.Providers.XAIAPIKey == "" {
		logger.Log.Warn("XAI_API_KEY environment variable not set")
	}

	config.Proxy = ProxyConfig{
		URL: getEnvOrDefault("AI_PROXY_URL", "http://localhost:"+config.Server.Port+"/api/ai-proxy"),
	}

	return config, nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithField("key", key).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}
