// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/retina/api"
	"github.com/papercomputeco/retina/pkg/answer/ollama"
	"github.com/papercomputeco/retina/pkg/config"
	embeddingutils "github.com/papercomputeco/retina/pkg/embeddings/utils"
	"github.com/papercomputeco/retina/pkg/engine"
	"github.com/papercomputeco/retina/pkg/eventstream"
	eventkafka "github.com/papercomputeco/retina/pkg/eventstream/kafka"
	"github.com/papercomputeco/retina/pkg/eventstream/nop"
	"github.com/papercomputeco/retina/pkg/logger"
	"github.com/papercomputeco/retina/pkg/record"
	"github.com/papercomputeco/retina/pkg/record/inmemory"
	"github.com/papercomputeco/retina/pkg/record/postgres"
	"github.com/papercomputeco/retina/pkg/record/sqlite"
	"github.com/papercomputeco/retina/pkg/splitter/rasterd"
	"github.com/papercomputeco/retina/pkg/watch"
)

type serveCommander struct {
	listen    string
	driver    string
	sqlite    string
	postgres  string
	watchDir  string
	debug     bool
	configDir string
	logger    *zap.Logger
}

const serveLongDesc string = `Run the Retina API server.

Builds the retrieval engine from the resolved configuration and serves the
indexing and query endpoints. When watch.dir is configured (or --watch-dir
given), a directory watcher runs alongside the server and indexes files
dropped into that directory.

Config precedence: CLI flags, then RETINA_* environment variables, then
config.toml, then defaults.`

const serveShortDesc string = "Run the Retina API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for API server to listen on")
	cmd.Flags().StringVar(&cmder.driver, "driver", "", "Record store driver (sqlite, postgres, memory)")
	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.postgres, "postgres", "", "Postgres connection URL")
	cmd.Flags().StringVarP(&cmder.watchDir, "watch-dir", "w", "", "Directory to watch for new documents")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.FromViper(v)

	// Flags beat config file and environment values.
	if cmd.Flags().Changed("listen") {
		cfg.API.Listen = c.listen
	}
	if cmd.Flags().Changed("driver") {
		cfg.Storage.Driver = c.driver
	}
	if cmd.Flags().Changed("sqlite") {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.SQLitePath = c.sqlite
	}
	if cmd.Flags().Changed("postgres") {
		cfg.Storage.Driver = "postgres"
		cfg.Storage.PostgresURL = c.postgres
	}
	if cmd.Flags().Changed("watch-dir") {
		cfg.Watch.Dir = c.watchDir
	}

	store, err := c.newRecordStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	generator, err := embeddingutils.NewGenerator(&embeddingutils.NewGeneratorOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return fmt.Errorf("creating embedding generator: %w", err)
	}
	defer generator.Close()

	pageSplitter, err := rasterd.NewSplitter(rasterd.Config{
		BaseURL: cfg.Splitter.Target,
	})
	if err != nil {
		return fmt.Errorf("creating page splitter: %w", err)
	}
	defer pageSplitter.Close()

	synthesizer, err := ollama.NewSynthesizer(ollama.Config{
		BaseURL: cfg.Answer.Target,
		Model:   cfg.Answer.Model,
	})
	if err != nil {
		return fmt.Errorf("creating answer synthesizer: %w", err)
	}
	defer synthesizer.Close()

	publisher, err := c.newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	eng, err := engine.New(engine.Config{
		TargetLen:           cfg.Engine.TargetLen,
		Metric:              engine.Metric(cfg.Engine.Metric),
		MaxConcurrentEmbeds: int64(cfg.Engine.MaxConcurrentEmbeds),
	}, engine.Deps{
		Generator:   generator,
		Store:       store,
		Splitter:    pageSplitter,
		Synthesizer: synthesizer,
		Publisher:   publisher,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	apiConfig := api.Config{
		ListenAddr: cfg.API.Listen,
	}
	server := api.NewServer(apiConfig, eng, store, c.logger)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watch.Dir != "" {
		watcher, err := watch.NewWatcher(eng, cfg.Watch.Dir, cfg.Watch.Namespace, c.logger)
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		defer watcher.Close()

		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				errChan <- fmt.Errorf("watcher error: %w", err)
			}
		}()
	}

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		return server.Shutdown()
	}
}

func (c *serveCommander) newRecordStore(cfg *config.Config) (record.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		store, err := sqlite.NewStore(cfg.Storage.SQLitePath, c.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", cfg.Storage.SQLitePath))
		return store, nil
	case "postgres":
		store, err := postgres.NewStore(context.Background(), cfg.Storage.PostgresURL, c.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres store: %w", err)
		}
		c.logger.Info("using Postgres storage")
		return store, nil
	case "memory":
		c.logger.Info("using in-memory storage")
		return inmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
}

func (c *serveCommander) newPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	if len(cfg.Events.Brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	publisher, err := eventkafka.NewPublisher(eventkafka.Config{
		Brokers: cfg.Events.Brokers,
		Topic:   cfg.Events.Topic,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	c.logger.Info("publishing index events to kafka",
		zap.Strings("brokers", cfg.Events.Brokers),
		zap.String("topic", cfg.Events.Topic),
	)
	return publisher, nil
}
