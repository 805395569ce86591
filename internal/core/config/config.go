package config

import (
	"time"

	"github.com/vietddude/catfeed/internal/infra/redis"
	"github.com/vietddude/catfeed/internal/infra/remote"
	"github.com/vietddude/catfeed/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig    `yaml:"server"`
	Feed     FeedConfig      `yaml:"feed"`
	Remote   RemoteConfig    `yaml:"remote"`
	Journal  JournalConfig   `yaml:"journal"`
	Redis    redis.Config    `yaml:"redis"`
	Database postgres.Config `yaml:"database"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP and gRPC server settings.
type ServerConfig struct {
	Port     int `yaml:"port"`
	GRPCPort int `yaml:"grpc_port"` // 0 disables the gRPC health server
}

// FeedConfig holds the tick and fallback settings.
type FeedConfig struct {
	Interval     time.Duration `yaml:"interval"`
	DefaultError string        `yaml:"default_error"` // message reference for generic failures
	FactsFile    string        `yaml:"facts_file"`    // empty = built-in facts
}

// RemoteConfig holds the remote fact service settings.
type RemoteConfig struct {
	Timeout   time.Duration      `yaml:"timeout"`
	MaxLength int                `yaml:"max_length"` // 0 = no limit
	Retry     remote.RetryConfig `yaml:"retry"`
	Endpoints []EndpointConfig   `yaml:"endpoints"`
}

// EndpointConfig holds settings for one fact service.
type EndpointConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// JournalConfig selects where published results are recorded.
type JournalConfig struct {
	Backend  string `yaml:"backend"` // memory, redis, postgres, none
	Capacity int    `yaml:"capacity"`

	// Entries older than Retention are pruned. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

const (
	JournalMemory   = "memory"
	JournalRedis    = "redis"
	JournalPostgres = "postgres"
	JournalNone     = "none"
)
