package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration. Every leaf can be
// overridden by the environment variable named in its env tag.
type Config struct {
	App           ApplicationConfig  `yaml:"app"`
	SQLite        SQLiteConfig       `yaml:"sqlite"`
	GRPC          GRPCConfig         `yaml:"grpc"`
	Kafka         KafkaConfig        `yaml:"kafka"`
	Illustrations IllustrationConfig `yaml:"illustrations"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.GRPC.Validate(); err != nil {
		return fmt.Errorf("grpc: %w", err)
	}
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if err := c.Illustrations.Validate(); err != nil {
		return fmt.Errorf("illustrations: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"STORYGRAPH_LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http"`
	// WatchConfig reloads the log level when the config file changes.
	WatchConfig bool `yaml:"watch_config" env:"STORYGRAPH_WATCH_CONFIG"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"STORYGRAPH_HTTP_PORT"`
	// CORSOrigins lists the origins allowed to call the API from a browser.
	CORSOrigins []string `yaml:"cors_origins" env:"STORYGRAPH_CORS_ORIGINS"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"STORYGRAPH_SQLITE_PATH"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// GRPCConfig holds the binary RPC server configuration.
type GRPCConfig struct {
	Enabled bool `yaml:"enabled" env:"STORYGRAPH_GRPC_ENABLED"`
	Port    int  `yaml:"port" env:"STORYGRAPH_GRPC_PORT"`
}

// Address returns the gRPC listen address.
func (c *GRPCConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the gRPC configuration.
func (c *GRPCConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.When(c.Enabled, validation.Required, validation.Min(1), validation.Max(65535))),
	)
}

// KafkaConfig holds the update consumer configuration.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env:"STORYGRAPH_KAFKA_ENABLED"`
	Brokers []string `yaml:"brokers" env:"STORYGRAPH_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"STORYGRAPH_KAFKA_TOPIC"`
	Group   string   `yaml:"group" env:"STORYGRAPH_KAFKA_GROUP"`
}

// Validate validates the Kafka configuration. Nothing is required while the
// consumer is disabled.
func (c *KafkaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Brokers, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Topic, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Group, validation.When(c.Enabled, validation.Required)),
	)
}

// IllustrationConfig holds the directory illustration files are stored in.
type IllustrationConfig struct {
	Path string `yaml:"path" env:"STORYGRAPH_ILLUSTRATIONS_PATH"`
}

// Validate validates the illustration configuration.
func (c *IllustrationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:        8080,
				CORSOrigins: []string{"http://localhost:5173"},
			},
		},
		SQLite: SQLiteConfig{
			Path: "./storygraph.db",
		},
		GRPC: GRPCConfig{
			Enabled: true,
			Port:    9090,
		},
		Kafka: KafkaConfig{
			Topic: "story-node-updates",
			Group: "storygraph",
		},
		Illustrations: IllustrationConfig{
			Path: "./illustrations",
		},
	}
}
