package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load builds the configuration. Precedence, lowest to highest: built-in
// defaults, the config file (if found), DOCSHED_* environment variables,
// then any runtime overrides.
//
// The config file is looked up as docshed.yaml in the working directory and
// /etc/docshed/, or at an explicit path via DOCSHED_CONFIG.
func Load(overrides ...map[string]any) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("DOCSHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("docshed")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/docshed")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	for _, o := range overrides {
		if err := v.MergeConfigMap(o); err != nil {
			return nil, fmt.Errorf("merge overrides: %w", err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Docs.Root) == "" {
		return fmt.Errorf("docs root is required")
	}
	if strings.TrimSpace(c.Registry.URL) == "" {
		return fmt.Errorf("registry url is required")
	}
	if strings.TrimSpace(c.Queue.Dir) == "" {
		return fmt.Errorf("queue dir is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")

	v.SetDefault("docs.root", "/var/lib/docshed/docs")
	v.SetDefault("queue.dir", "/var/lib/docshed/jobs")
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.buffer", 64)
	v.SetDefault("queue.retention", 24*time.Hour)
	v.SetDefault("queue.sweep_interval", time.Hour)

	v.SetDefault("registry.url", "https://registry.npmjs.org")
	v.SetDefault("registry.requests_per_second", 10.0)
	v.SetDefault("registry.timeout", 15*time.Second)

	v.SetDefault("preload.cache_size", 256)

	v.SetDefault("generator.command", "docgen")
}
