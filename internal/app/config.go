package app

import (
	"multichat/internal/config"
	"multichat/internal/repository/db"
)

// Config holds all application dependencies and configuration
type Config struct {
	// Database interface for data persistence
	DB db.Database
	// Centralized application configuration
	AppConfig *config.AppConfig
	// Static model catalog
	Models *config.ModelCatalog
}

// NewConfig creates a new application configuration
func NewConfig(database db.Database, appConfig *config.AppConfig, models *config.ModelCatalog) *Config {
	return &Config{
		DB:        database,
		AppConfig: appConfig,
		Models:    models,
	}
}
