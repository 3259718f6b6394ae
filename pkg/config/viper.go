package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file (if
// one exists in the resolved .retina/ directory), and binds environment
// variables with the RETINA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the command)
//  2. Environment variables (RETINA_API_LISTEN, RETINA_STORAGE_DRIVER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	dir, err := Dir(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("RETINA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper state.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresURL: v.GetString("storage.postgres_url"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Engine: EngineConfig{
			TargetLen:           v.GetInt("engine.target_len"),
			Metric:              v.GetString("engine.metric"),
			MaxConcurrentEmbeds: v.GetInt("engine.max_concurrent_embeds"),
		},
		Embedding: EmbeddingConfig{
			Provider: v.GetString("embedding.provider"),
			Target:   v.GetString("embedding.target"),
			Model:    v.GetString("embedding.model"),
		},
		Answer: AnswerConfig{
			Provider: v.GetString("answer.provider"),
			Target:   v.GetString("answer.target"),
			Model:    v.GetString("answer.model"),
		},
		Splitter: SplitterConfig{
			Target: v.GetString("splitter.target"),
		},
		Events: EventsConfig{
			Brokers: v.GetStringSlice("events.brokers"),
			Topic:   v.GetString("events.topic"),
		},
		Watch: WatchConfig{
			Dir:       v.GetString("watch.dir"),
			Namespace: v.GetString("watch.namespace"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_url", d.Storage.PostgresURL)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Engine
	v.SetDefault("engine.target_len", d.Engine.TargetLen)
	v.SetDefault("engine.metric", d.Engine.Metric)
	v.SetDefault("engine.max_concurrent_embeds", d.Engine.MaxConcurrentEmbeds)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)

	// Answer
	v.SetDefault("answer.provider", d.Answer.Provider)
	v.SetDefault("answer.target", d.Answer.Target)
	v.SetDefault("answer.model", d.Answer.Model)

	// Splitter
	v.SetDefault("splitter.target", d.Splitter.Target)

	// Events
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Watch
	v.SetDefault("watch.dir", d.Watch.Dir)
	v.SetDefault("watch.namespace", d.Watch.Namespace)
}
