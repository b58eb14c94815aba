package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Session    SessionConfig    `json:"session"`
	Provider   string           `json:"provider"` // registry id of the LLM provider
	OpenAI     OpenAIConfig     `json:"openai"`
	Maps       MapsConfig       `json:"maps"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

// SessionConfig selects the session store backend and its TTL.
type SessionConfig struct {
	Backend  string `json:"backend"` // "memory" or "postgres"
	TTLHours int    `json:"ttl_hours"`
}

type OpenAIConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

type MapsConfig struct {
	APIKey string `json:"api_key"`
}

type DispatcherConfig struct {
	MaxToolRounds         int `json:"max_tool_rounds"`
	HistoryWindow         int `json:"history_window"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

// Load reads config.json with defaults and environment overrides.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".locas"))
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file is fine; defaults plus env cover everything.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "locas")
	viper.SetDefault("database.database", "locas")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("session.backend", "memory")
	viper.SetDefault("session.ttl_hours", 24)
	viper.SetDefault("provider", "openai")
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("dispatcher.max_tool_rounds", 5)
	viper.SetDefault("dispatcher.history_window", 10)
	viper.SetDefault("dispatcher.request_timeout_seconds", 30)
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("LOCAS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("LOCAS_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if backend := os.Getenv("LOCAS_SESSION_BACKEND"); backend != "" {
		cfg.Session.Backend = backend
	}
	if provider := os.Getenv("LOCAS_PROVIDER"); provider != "" {
		cfg.Provider = provider
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.OpenAI.Model = model
	}
	if key := os.Getenv("MAPS_API_KEY"); key != "" {
		cfg.Maps.APIKey = key
	}

	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}
}
