package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/infra/redis"
	"github.com/vietddude/catfeed/internal/infra/remote"
	"github.com/vietddude/catfeed/internal/infra/storage/postgres"
)

// DefaultEndpoint is the public cat fact service.
const DefaultEndpoint = "https://catfact.ninja"

// Load reads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used without a config file.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

// Validate checks settings that have no sensible default.
func (c *AppConfig) Validate() error {
	switch c.Journal.Backend {
	case JournalMemory, JournalNone:
	case JournalRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("journal backend redis requires redis.url")
		}
	case JournalPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("journal backend postgres requires database.url")
		}
	default:
		return fmt.Errorf("unknown journal backend %q", c.Journal.Backend)
	}

	if c.Journal.Retention < 0 {
		return fmt.Errorf("journal retention must not be negative")
	}

	for i, e := range c.Remote.Endpoints {
		if e.URL == "" {
			return fmt.Errorf("remote endpoint %d has no url", i)
		}
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Feed.Interval == 0 {
		cfg.Feed.Interval = 2 * time.Second
	}
	if cfg.Feed.DefaultError == "" {
		cfg.Feed.DefaultError = string(domain.DefaultErrorMessage)
	}

	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 10 * time.Second
	}
	retry := &cfg.Remote.Retry
	if retry.MaxAttempts == 0 {
		retry.MaxAttempts = remote.DefaultRetryConfig.MaxAttempts
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = remote.DefaultRetryConfig.InitialDelay
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = remote.DefaultRetryConfig.MaxDelay
	}
	if retry.BackoffMultiple == 0 {
		retry.BackoffMultiple = remote.DefaultRetryConfig.BackoffMultiple
	}
	if len(cfg.Remote.Endpoints) == 0 {
		cfg.Remote.Endpoints = []EndpointConfig{{Name: "catfact", URL: DefaultEndpoint}}
	}
	for i := range cfg.Remote.Endpoints {
		if cfg.Remote.Endpoints[i].Name == "" {
			cfg.Remote.Endpoints[i].Name = fmt.Sprintf("endpoint-%d", i+1)
		}
	}

	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = JournalMemory
	}
	if cfg.Journal.Capacity == 0 {
		cfg.Journal.Capacity = 100
	}

	if cfg.Redis.Key == "" {
		cfg.Redis.Key = redis.DefaultKey
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = postgres.DefaultDriver
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
