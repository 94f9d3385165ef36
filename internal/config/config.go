// Package config loads service configuration from defaults, an optional
// YAML file, and DOCSHED_-prefixed environment variables, in ascending
// precedence.
package config

import (
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Docs      DocsConfig      `mapstructure:"docs"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Preload   PreloadConfig   `mapstructure:"preload"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DocsConfig configures the artifact tree.
type DocsConfig struct {
	Root string `mapstructure:"root"`
}

// RegistryConfig configures the upstream package registry client.
type RegistryConfig struct {
	URL               string        `mapstructure:"url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// QueueConfig configures the generation-job queue.
type QueueConfig struct {
	Dir           string        `mapstructure:"dir"`
	Workers       int           `mapstructure:"workers"`
	Buffer        int           `mapstructure:"buffer"`
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// PreloadConfig configures preload-asset extraction.
type PreloadConfig struct {
	CacheSize int      `mapstructure:"cache_size"`
	Exclude   []string `mapstructure:"exclude"`
}

// GeneratorConfig configures the external documentation generator.
type GeneratorConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// MirrorConfig configures the optional shared artifact mirror.
// The mirror is enabled when Bucket is non-empty.
type MirrorConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}
