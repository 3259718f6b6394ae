// Package watchcmder provides the watch command for indexing a directory.
package watchcmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

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

type watchCommander struct {
	dir       string
	namespace string
	debug     bool
	configDir string
	logger    *zap.Logger
}

const watchLongDesc string = `Watch a directory and index new files.

New images (.png, .jpg, .jpeg) are indexed directly; PDFs are split into
pages and each page is indexed. Files are deduplicated by content hash, so
re-copying a file is harmless.

Runs until interrupted.`

const watchShortDesc string = "Watch a directory and index new files"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			if len(args) == 1 {
				cmder.dir = args[0]
			}

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.namespace, "namespace", "n", "", "Namespace to index into")

	return cmd
}

func (c *watchCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.FromViper(v)

	if c.dir != "" {
		cfg.Watch.Dir = c.dir
	}
	if cmd.Flags().Changed("namespace") {
		cfg.Watch.Namespace = c.namespace
	}
	if cfg.Watch.Dir == "" {
		return fmt.Errorf("no directory given; pass one or set watch.dir")
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
		Generator: generator,
		Store:     store,
		Splitter:  pageSplitter,
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	watcher, err := watch.NewWatcher(eng, cfg.Watch.Dir, cfg.Watch.Namespace, c.logger)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			errChan <- fmt.Errorf("watcher error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return nil
	}
}

func (c *watchCommander) newRecordStore(cfg *config.Config) (record.Store, error) {
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

func (c *watchCommander) newPublisher(cfg *config.Config) (eventstream.Publisher, error) {
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

	return publisher, nil
}
