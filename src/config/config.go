package config

import (
	"fmt"
	"os"
	"strings"

	"meme-market/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the YAML file.
const (
	EnvSecretKey          = "MEME_SECRET_KEY"
	EnvOAuthClientID      = "MEME_OAUTH_CLIENT_ID"
	EnvOAuthClientSecret  = "MEME_OAUTH_CLIENT_SECRET"
	EnvDBConnectionString = "MEME_DB_CONNECTION_STRING"
	EnvRedisPassword      = "MEME_REDIS_PASSWORD"
)

type secretField struct {
	env   string
	field func(*models.MConfig) *string
}

var secretFields = []secretField{
	{EnvSecretKey, func(m *models.MConfig) *string { return &m.Auth.SecretKey }},
	{EnvOAuthClientID, func(m *models.MConfig) *string { return &m.Auth.ClientID }},
	{EnvOAuthClientSecret, func(m *models.MConfig) *string { return &m.Auth.ClientSecret }},
	{EnvDBConnectionString, func(m *models.MConfig) *string { return &m.Storage.DBConnectionString }},
	{EnvRedisPassword, func(m *models.MConfig) *string { return &m.Events.RedisPassword }},
}

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig

	// file values of the fields replaced from the environment, keyed by variable
	fileSecrets map[string]string
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, a .env file next to the
// working directory (optional) and MEME_* environment variables.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Load .env into the process environment; a missing file is fine
	_ = godotenv.Load()

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from YAML bytes, applies defaults and environment overrides, then validates.
func Parse(data []byte) (*Config, error) {
	modelConfig := Defaults()
	if err := yaml.Unmarshal(data, modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: modelConfig}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Defaults returns the configuration used for keys absent from the file.
func Defaults() *models.MConfig {
	return &models.MConfig{
		Name:     "meme-market",
		Host:     "127.0.0.1",
		Port:     5000,
		LogLevel: "INFO",
		GrpcPort: 50051,
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: "meme-market.db",
		},
		Network: models.MNetworkConfig{
			RequestTimeout: 10,
			MaxRetries:     2,
			UserAgent:      "meme-market/1.0",
		},
		Market: models.MMarketConfig{
			StartingCash: 100,
			RecentSize:   100,
		},
		Auth: models.MAuthConfig{
			Scopes: []string{"email"},
		},
		Events: models.MEventsConfig{
			RedisPrefix: "trades.",
			KafkaTopic:  "meme-trades",
		},
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	c.fileSecrets = make(map[string]string)
	for _, f := range secretFields {
		if v, ok := os.LookupEnv(f.env); ok && v != "" {
			dst := f.field(c.MConfig)
			c.fileSecrets[f.env] = *dst
			*dst = v
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Storage.DBType)
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Market
	if c.Market.StartingCash <= 0 {
		return fmt.Errorf("starting cash must be greater than 0")
	}
	if c.Market.RecentSize <= 0 {
		return fmt.Errorf("recent size must be greater than 0")
	}

	// Auth: the local bypass only exists in debug mode, so production needs real credentials
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth secret key cannot be empty (set %s)", EnvSecretKey)
	}
	if !c.Debug {
		if c.Auth.ClientID == "" || c.Auth.ClientSecret == "" {
			return fmt.Errorf("oauth client id and secret are required outside debug mode")
		}
		if c.Auth.ServerName == "" {
			return fmt.Errorf("auth server name is required outside debug mode")
		}
	}

	// Events
	if len(c.Events.KafkaBrokers) > 0 && c.Events.KafkaTopic == "" {
		return fmt.Errorf("kafka topic cannot be empty when brokers are configured")
	}
	for i, origin := range c.Cors.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors origin %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path.
// Fields taken from the environment are written back with their file values.
func (c *Config) Save(configPath string) error {
	out := *c.MConfig
	for _, f := range secretFields {
		if v, ok := c.fileSecrets[f.env]; ok {
			*f.field(&out) = v
		}
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
