// Package config loads server configuration from defaults, an optional YAML
// file named by CONFIG_FILE, and environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// DevJWTSecret is used when no secret is configured. It is only fit for
// local development.
const DevJWTSecret = "dev-secret-change-in-production"

// Config is the complete server configuration.
type Config struct {
	Addr          string        `yaml:"addr"`
	DBPath        string        `yaml:"db_path"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
	AI            AIConfig      `yaml:"ai"`
	Redis         RedisConfig   `yaml:"redis"`
	Log           LogConfig     `yaml:"log"`
}

// AIConfig configures the split generator. An empty APIKey disables it.
type AIConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// RedisConfig configures the balance cache. An empty URL disables it.
type RedisConfig struct {
	URL        string        `yaml:"url"`
	BalanceTTL time.Duration `yaml:"balance_ttl"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Addr:          ":8080",
		DBPath:        "./data/splitledger.db",
		JWTSecret:     DevJWTSecret,
		TokenDuration: 24 * time.Hour,
		AI: AIConfig{
			Timeout: 20 * time.Second,
			Retries: 1,
		},
		Redis: RedisConfig{
			BalanceTTL: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration and validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr is required")
	case c.DBPath == "":
		return errors.New("db_path is required")
	case c.JWTSecret == "":
		return errors.New("jwt_secret is required")
	case c.TokenDuration <= 0:
		return errors.New("token_duration must be positive")
	case c.AI.Timeout <= 0:
		return errors.New("ai.timeout must be positive")
	case c.AI.Retries < 0:
		return errors.New("ai.retries must not be negative")
	case c.Redis.BalanceTTL <= 0:
		return errors.New("redis.balance_ttl must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Addr, "ADDR")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.AI.APIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.AI.Model, "ANTHROPIC_MODEL")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	for key, dst := range map[string]*time.Duration{
		"TOKEN_DURATION":    &cfg.TokenDuration,
		"AI_TIMEOUT":        &cfg.AI.Timeout,
		"BALANCE_CACHE_TTL": &cfg.Redis.BalanceTTL,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("AI_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AI_RETRIES: %w", err)
		}
		cfg.AI.Retries = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
