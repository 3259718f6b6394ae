package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent retina configuration stored as
// config.toml in the .retina/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version" mapstructure:"version"`
	Storage   StorageConfig   `toml:"storage" mapstructure:"storage"`
	API       APIConfig       `toml:"api" mapstructure:"api"`
	Engine    EngineConfig    `toml:"engine" mapstructure:"engine"`
	Embedding EmbeddingConfig `toml:"embedding" mapstructure:"embedding"`
	Answer    AnswerConfig    `toml:"answer" mapstructure:"answer"`
	Splitter  SplitterConfig  `toml:"splitter" mapstructure:"splitter"`
	Events    EventsConfig    `toml:"events" mapstructure:"events"`
	Watch     WatchConfig     `toml:"watch" mapstructure:"watch"`
}

// StorageConfig selects and configures the record store backend.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty" mapstructure:"driver"`
	SQLitePath  string `toml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
	PostgresURL string `toml:"postgres_url,omitempty" mapstructure:"postgres_url"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty" mapstructure:"listen"`
}

// EngineConfig holds retrieval engine tuning.
type EngineConfig struct {
	TargetLen           int    `toml:"target_len,omitempty" mapstructure:"target_len"`
	Metric              string `toml:"metric,omitempty" mapstructure:"metric"`
	MaxConcurrentEmbeds int    `toml:"max_concurrent_embeds,omitempty" mapstructure:"max_concurrent_embeds"`
}

// EmbeddingConfig holds embedding generator settings.
type EmbeddingConfig struct {
	Provider string `toml:"provider,omitempty" mapstructure:"provider"`
	Target   string `toml:"target,omitempty" mapstructure:"target"`
	Model    string `toml:"model,omitempty" mapstructure:"model"`
}

// AnswerConfig holds answer synthesizer settings.
type AnswerConfig struct {
	Provider string `toml:"provider,omitempty" mapstructure:"provider"`
	Target   string `toml:"target,omitempty" mapstructure:"target"`
	Model    string `toml:"model,omitempty" mapstructure:"model"`
}

// SplitterConfig holds page rasterizer settings.
type SplitterConfig struct {
	Target string `toml:"target,omitempty" mapstructure:"target"`
}

// EventsConfig holds event stream settings. Brokers empty means events are
// disabled (nop publisher).
type EventsConfig struct {
	Brokers []string `toml:"brokers,omitempty" mapstructure:"brokers"`
	Topic   string   `toml:"topic,omitempty" mapstructure:"topic"`
}

// WatchConfig holds directory watcher settings.
type WatchConfig struct {
	Dir       string `toml:"dir,omitempty" mapstructure:"dir"`
	Namespace string `toml:"namespace,omitempty" mapstructure:"namespace"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error { c.Storage.Driver = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_url": {
		get: func(c *Config) string { return c.Storage.PostgresURL },
		set: func(c *Config, v string) error { c.Storage.PostgresURL = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"engine.target_len": {
		get: func(c *Config) string {
			if c.Engine.TargetLen == 0 {
				return ""
			}
			return strconv.Itoa(c.Engine.TargetLen)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for engine.target_len: %q", v)
			}
			c.Engine.TargetLen = n
			return nil
		},
	},
	"engine.metric": {
		get: func(c *Config) string { return c.Engine.Metric },
		set: func(c *Config, v string) error {
			if v != "dot" && v != "cosine" {
				return fmt.Errorf("invalid value for engine.metric: %q (want dot or cosine)", v)
			}
			c.Engine.Metric = v
			return nil
		},
	},
	"engine.max_concurrent_embeds": {
		get: func(c *Config) string {
			if c.Engine.MaxConcurrentEmbeds == 0 {
				return ""
			}
			return strconv.Itoa(c.Engine.MaxConcurrentEmbeds)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for engine.max_concurrent_embeds: %q", v)
			}
			c.Engine.MaxConcurrentEmbeds = n
			return nil
		},
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"answer.provider": {
		get: func(c *Config) string { return c.Answer.Provider },
		set: func(c *Config, v string) error { c.Answer.Provider = v; return nil },
	},
	"answer.target": {
		get: func(c *Config) string { return c.Answer.Target },
		set: func(c *Config, v string) error { c.Answer.Target = v; return nil },
	},
	"answer.model": {
		get: func(c *Config) string { return c.Answer.Model },
		set: func(c *Config, v string) error { c.Answer.Model = v; return nil },
	},
	"splitter.target": {
		get: func(c *Config) string { return c.Splitter.Target },
		set: func(c *Config, v string) error { c.Splitter.Target = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Events.Brokers = nil
				return nil
			}
			c.Events.Brokers = strings.Split(v, ",")
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"watch.dir": {
		get: func(c *Config) string { return c.Watch.Dir },
		set: func(c *Config, v string) error { c.Watch.Dir = v; return nil },
	},
	"watch.namespace": {
		get: func(c *Config) string { return c.Watch.Namespace },
		set: func(c *Config, v string) error { c.Watch.Namespace = v; return nil },
	},
}
