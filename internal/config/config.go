// Package config loads server settings from tasktalk.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no path is given. A missing default file is not an error.
const DefaultPath = "tasktalk.yaml"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderOpenAI    = "openai"
	ProviderClaudeCLI = "claude-cli"
)

// Config holds server settings.
type Config struct {
	Port     string   `yaml:"port"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Model    Model    `yaml:"model"`
	Cache    Cache    `yaml:"cache"`
}

// Database selects and locates the store.
type Database struct {
	Driver     string `yaml:"driver"` // postgres or sqlite; inferred from URL when empty
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Auth configures sessions.
type Auth struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
	BcryptCost   int           `yaml:"bcrypt_cost"`
}

// Model configures the hosted model.
type Model struct {
	Provider      string        `yaml:"provider"` // openai or claude-cli
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Name          string        `yaml:"name"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxOperations int           `yaml:"max_operations"`
}

// Cache configures the task list cache.
type Cache struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:     "8080",
		Database: Database{SQLitePath: "tasktalk.db"},
		Auth:     Auth{TokenTTL: 7 * 24 * time.Hour, BcryptCost: 12},
		Model: Model{
			Provider:      ProviderOpenAI,
			BaseURL:       "https://openrouter.ai/api/v1",
			Name:          "openai/gpt-4o-mini",
			Timeout:       30 * time.Second,
			MaxOperations: 10,
		},
		Cache: Cache{TTL: 30 * time.Second},
	}
}

// Load reads path (or DefaultPath when empty), then applies environment
// overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
		if cfg.Database.URL != "" {
			cfg.Database.Driver = DriverPostgres
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("PORT", &c.Port)
	str("DATABASE_URL", &c.Database.URL)
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("SQLITE_PATH", &c.Database.SQLitePath)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("MODEL_PROVIDER", &c.Model.Provider)
	str("OPENROUTER_URL", &c.Model.BaseURL)
	str("OPENAI_API_KEY", &c.Model.APIKey)
	str("OPENROUTER_API_KEY", &c.Model.APIKey)
	str("MODEL_NAME", &c.Model.Name)
	if err := dur("MODEL_TIMEOUT", &c.Model.Timeout); err != nil {
		return err
	}
	if err := dur("CACHE_TTL", &c.Cache.TTL); err != nil {
		return err
	}
	if v := getenv("SECURE_COOKIE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SECURE_COOKIE: %w", err)
		}
		c.Auth.SecureCookie = b
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database: postgres needs a url (DATABASE_URL)")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("database: sqlite needs a path (SQLITE_PATH)")
		}
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth: jwt_secret is required (JWT_SECRET)")
	}
	switch c.Model.Provider {
	case ProviderOpenAI:
		if c.Model.APIKey == "" {
			return errors.New("model: openai provider needs an api key (OPENROUTER_API_KEY)")
		}
	case ProviderClaudeCLI:
	default:
		return fmt.Errorf("model: unknown provider %q", c.Model.Provider)
	}
	if c.Model.Timeout <= 0 {
		return errors.New("model: timeout must be positive")
	}
	if c.Model.MaxOperations <= 0 {
		return errors.New("model: max_operations must be positive")
	}
	return nil
}
