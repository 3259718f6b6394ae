// Package watch feeds files dropped into a directory through the indexing
// pipeline.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/papercomputeco/retina/pkg/engine"
)

// mediaTypes maps supported file extensions to their media type. Anything
// else in the directory is ignored.
var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".pdf":  "application/pdf",
}

// Watcher indexes new files from one directory into one namespace.
type Watcher struct {
	engine    *engine.Engine
	dir       string
	namespace string
	logger    *zap.Logger
	fsw       *fsnotify.Watcher
}

// NewWatcher creates a watcher over dir. Files already present are not
// indexed retroactively; run a backfill by re-copying them if needed.
func NewWatcher(eng *engine.Engine, dir, namespace string, logger *zap.Logger) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}

	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %q: %w", dir, err)
	}

	return &Watcher{
		engine:    eng,
		dir:       dir,
		namespace: namespace,
		logger:    logger,
		fsw:       fsw,
	}, nil
}

// Run processes events until the context is canceled or the watcher closes.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching directory",
		zap.String("dir", w.dir),
		zap.String("namespace", w.namespace),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			// Indexing is idempotent by content hash, so a file seen for
			// both Create and Write just hits the dedup fast path twice.
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.handleFile(ctx, event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// Close stops the underlying fs watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handleFile(ctx context.Context, path string) {
	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("could not read file",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}
	if len(payload) == 0 {
		// Editors often create the file before writing content; the Write
		// event will come around again.
		return
	}

	if mediaType == "application/pdf" {
		result, err := w.engine.IndexPages(ctx, w.namespace, payload)
		if err != nil {
			w.logger.Error("failed to index pdf",
				zap.String("path", path),
				zap.Error(err),
			)
			return
		}
		w.logger.Info("indexed pdf from watch dir",
			zap.String("path", path),
			zap.Int("pages", len(result.Hashes)),
			zap.Int("failed", len(result.Failures)),
		)
		return
	}

	hash, duplicate, err := w.engine.Index(ctx, w.namespace, payload, mediaType)
	if err != nil {
		w.logger.Error("failed to index image",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}

	w.logger.Info("indexed image from watch dir",
		zap.String("path", path),
		zap.String("hash", hash),
		zap.Bool("duplicate", duplicate),
	)
}
