package config

const (
	defaultStorageDriver = "sqlite"
	defaultSQLitePath    = "retina.db"
	defaultAPIListen     = ":8082"

	defaultEmbeddingProvider = "colqwen"
	defaultEmbeddingTarget   = "http://localhost:7020"
	defaultEmbeddingModel    = "vidore/colqwen2-v0.1"

	defaultAnswerProvider = "ollama"
	defaultAnswerTarget   = "http://localhost:11434"
	defaultAnswerModel    = "qwen2.5vl:3b"

	defaultSplitterTarget = "http://localhost:7030"

	defaultTargetLen           = 620
	defaultMetric              = "dot"
	defaultMaxConcurrentEmbeds = 2

	defaultEventsTopic = "retina.documents"

	defaultWatchNamespace = "default"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver:     defaultStorageDriver,
			SQLitePath: defaultSQLitePath,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Engine: EngineConfig{
			TargetLen:           defaultTargetLen,
			Metric:              defaultMetric,
			MaxConcurrentEmbeds: defaultMaxConcurrentEmbeds,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultEmbeddingProvider,
			Target:   defaultEmbeddingTarget,
			Model:    defaultEmbeddingModel,
		},
		Answer: AnswerConfig{
			Provider: defaultAnswerProvider,
			Target:   defaultAnswerTarget,
			Model:    defaultAnswerModel,
		},
		Splitter: SplitterConfig{
			Target: defaultSplitterTarget,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
		Watch: WatchConfig{
			Namespace: defaultWatchNamespace,
		},
	}
}
