package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "tribehub/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	// Neo4j
	Neo4jURI         string `yaml:"neo4j_uri"`
	Neo4jUser        string `yaml:"neo4j_user"`
	Neo4jPassword    string `yaml:"neo4j_password"`
	Neo4jDatabase    string `yaml:"neo4j_database"`
	Neo4jMaxPoolSize int    `yaml:"neo4j_max_pool_size"`

	// Aggregation
	AggregationConcurrency int `yaml:"aggregation_concurrency"` // Posts assembled in parallel per page
}

// Load reads configuration from environment variables, then applies the
// YAML file named by TRIBEHUB_CONFIG on top, if any.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	env := getEnv("ENV", "development")
	defaultLevel := "info"
	if env == "development" {
		defaultLevel = "debug"
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		Env:                    env,
		LogLevel:               getEnv("LOG_LEVEL", defaultLevel),
		Neo4jURI:               getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:              getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:          getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:          getEnv("NEO4J_DATABASE", "neo4j"),
		Neo4jMaxPoolSize:       getEnvInt("NEO4J_MAX_POOL_SIZE", 50),
		AggregationConcurrency: getEnvInt("AGGREGATION_CONCURRENCY", 8),
	}

	if path := os.Getenv("TRIBEHUB_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyFile overrides fields with the non-zero values found in a YAML file
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigValidationFailed("TRIBEHUB_CONFIG", err.Error())
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return apperrors.NewConfigValidationFailed("TRIBEHUB_CONFIG", err.Error())
	}

	overrideString(&c.Port, file.Port)
	overrideString(&c.Env, file.Env)
	overrideString(&c.LogLevel, file.LogLevel)
	overrideString(&c.Neo4jURI, file.Neo4jURI)
	overrideString(&c.Neo4jUser, file.Neo4jUser)
	overrideString(&c.Neo4jPassword, file.Neo4jPassword)
	overrideString(&c.Neo4jDatabase, file.Neo4jDatabase)
	if file.Neo4jMaxPoolSize != 0 {
		c.Neo4jMaxPoolSize = file.Neo4jMaxPoolSize
	}
	if file.AggregationConcurrency != 0 {
		c.AggregationConcurrency = file.AggregationConcurrency
	}
	return nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_USER")
	}
	if c.Neo4jPassword == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}
	if c.Neo4jMaxPoolSize <= 0 {
		return apperrors.NewConfigValidationFailed("NEO4J_MAX_POOL_SIZE", "must be positive")
	}
	if c.AggregationConcurrency <= 0 {
		return apperrors.NewConfigValidationFailed("AGGREGATION_CONCURRENCY", "must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func overrideString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
