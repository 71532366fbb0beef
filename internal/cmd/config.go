package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file-based part of configuration. Environment
// variables take precedence over it, defaults fill whatever both omit.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		PublicURL      string   `yaml:"public_url"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	NATS struct {
		URL        string `yaml:"url"`
		StreamName string `yaml:"stream_name"`
	} `yaml:"nats"`
	Outbox struct {
		FallbackIntervalSeconds int `yaml:"fallback_interval_seconds"`
		MaxRetries              int `yaml:"max_retries"`
	} `yaml:"outbox"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN renders a postgres URL usable by both the pgx pool and the
// lib/pq notification listener.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the yaml config. A missing file is not an error,
// everything has an env or built-in default.
func loadConfig(path string) (*Config, error) {
	config := &Config{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

func (c *Config) port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	if c.Server.Port != "" {
		return c.Server.Port
	}
	return "8080"
}

func (c *Config) publicURL() string {
	if u := os.Getenv("PUBLIC_URL"); u != "" {
		return u
	}
	if c.Server.PublicURL != "" {
		return c.Server.PublicURL
	}
	return fmt.Sprintf("http://localhost:%s", c.port())
}

func (c *Config) natsURL() string {
	if u := os.Getenv("NATS_URL"); u != "" {
		return u
	}
	if c.NATS.URL != "" {
		return c.NATS.URL
	}
	return "nats://localhost:4222"
}

func (c *Config) streamName() string {
	if c.NATS.StreamName != "" {
		return c.NATS.StreamName
	}
	return "GAME_EVENTS"
}

func (c *Config) outboxFallbackInterval() time.Duration {
	if c.Outbox.FallbackIntervalSeconds > 0 {
		return time.Duration(c.Outbox.FallbackIntervalSeconds) * time.Second
	}
	return 30 * time.Second
}

func (c *Config) outboxMaxRetries() int {
	if c.Outbox.MaxRetries > 0 {
		return c.Outbox.MaxRetries
	}
	return 5
}
