// Package engine implements the late-interaction retrieval engine: the
// indexing pipeline (hash, dedup, embed, persist) and the query pipeline
// (embed, scan, score, rank) over namespaced embedding records.
//
// The engine is stateless between calls; the record store is the single
// source of truth, so multiple process instances can share one backend.
// Every collaborator is injected at construction time.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/papercomputeco/retina/pkg/answer"
	"github.com/papercomputeco/retina/pkg/embeddings"
	"github.com/papercomputeco/retina/pkg/eventstream"
	"github.com/papercomputeco/retina/pkg/eventstream/nop"
	"github.com/papercomputeco/retina/pkg/record"
	"github.com/papercomputeco/retina/pkg/splitter"
)

const (
	// DefaultTopK is the result count when a query doesn't specify one.
	DefaultTopK = 5

	// DefaultMaxConcurrentEmbeds bounds simultaneous generator calls. The
	// generator is one shared, expensive model; unbounded parallel calls
	// exhaust it.
	DefaultMaxConcurrentEmbeds = 2

	// DefaultEmbedTimeout bounds one generator call.
	DefaultEmbedTimeout = 120 * time.Second

	// DefaultStoreTimeout bounds one record store call.
	DefaultStoreTimeout = 30 * time.Second
)

// Config holds engine tuning parameters.
type Config struct {
	// TargetLen is the fixed sequence length all embeddings are normalized
	// to before scoring. Changing it invalidates comparisons against
	// previously stored records; operators must re-index.
	// Defaults to DefaultTargetLen if zero.
	TargetLen int

	// Metric selects the per-token similarity function.
	// Defaults to MetricDot if empty.
	Metric Metric

	// MaxConcurrentEmbeds bounds simultaneous generator calls.
	// Defaults to DefaultMaxConcurrentEmbeds if zero.
	MaxConcurrentEmbeds int64

	// EmbedTimeout bounds one generator call.
	// Defaults to DefaultEmbedTimeout if zero.
	EmbedTimeout time.Duration

	// StoreTimeout bounds one record store call.
	// Defaults to DefaultStoreTimeout if zero.
	StoreTimeout time.Duration
}

// Deps holds the engine's collaborators. Generator and Store are required;
// the rest are optional and disable their features when nil.
type Deps struct {
	Generator   embeddings.Generator
	Store       record.Store
	Splitter    splitter.PageSplitter
	Synthesizer answer.Synthesizer
	Publisher   eventstream.Publisher
	Logger      *zap.Logger
}

// Match is one query result: a stored page and its similarity score.
type Match struct {
	ContentHash string    `json:"content_hash"`
	MediaType   string    `json:"media_type,omitempty"`
	Payload     []byte    `json:"payload"`
	Score       float64   `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
}

// PageFailure records one page of a multi-page document that failed to index.
type PageFailure struct {
	Page int    `json:"page"`
	Err  string `json:"error"`
}

// PageResult reports a multi-page indexing run. Pages index independently;
// already-stored pages are not rolled back when a later page fails.
type PageResult struct {
	Hashes   []string      `json:"hashes"`
	Failures []PageFailure `json:"failures,omitempty"`
}

// AnswerOutput is a synthesized answer plus the page it was grounded on.
type AnswerOutput struct {
	Answer string `json:"answer"`
	Match  Match  `json:"match"`
}

// Engine orchestrates indexing and querying.
type Engine struct {
	cfg       Config
	generator embeddings.Generator
	store     record.Store
	splitter  splitter.PageSplitter
	synth     answer.Synthesizer
	publisher eventstream.Publisher
	sem       *semaphore.Weighted
	logger    *zap.Logger
}

// New creates an engine. Defaults are applied for zero-valued config fields.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("embedding generator is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}

	if cfg.TargetLen == 0 {
		cfg.TargetLen = DefaultTargetLen
	}
	if cfg.TargetLen < 0 {
		return nil, fmt.Errorf("target length must be positive, got %d", cfg.TargetLen)
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricDot
	}
	if cfg.Metric != MetricDot && cfg.Metric != MetricCosine {
		return nil, fmt.Errorf("unsupported metric: %s", cfg.Metric)
	}
	if cfg.MaxConcurrentEmbeds <= 0 {
		cfg.MaxConcurrentEmbeds = DefaultMaxConcurrentEmbeds
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = DefaultEmbedTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		cfg:       cfg,
		generator: deps.Generator,
		store:     deps.Store,
		splitter:  deps.Splitter,
		synth:     deps.Synthesizer,
		publisher: publisher,
		sem:       semaphore.NewWeighted(cfg.MaxConcurrentEmbeds),
		logger:    logger,
	}, nil
}

// TargetLen returns the configured normalization length.
func (e *Engine) TargetLen() int {
	return e.cfg.TargetLen
}

// Index stores one document payload under its content hash. Identical bytes
// index to the same hash: re-indexing is an idempotent no-op that returns
// the existing hash with duplicate=true and never calls the generator.
//
// When two concurrent calls race on the same new hash, both embed, the
// store's atomic insert-if-absent admits exactly one record, and the loser
// adopts the winner's result. A generator failure writes nothing; retrying
// re-attempts generation.
func (e *Engine) Index(ctx context.Context, namespace string, payload []byte, mediaType string) (string, bool, error) {
	if namespace == "" {
		return "", false, fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}
	if len(payload) == 0 {
		return "", false, fmt.Errorf("%w: payload is empty", ErrInvalidInput)
	}

	hash := record.ContentHash(payload)

	exists, err := e.has(ctx, namespace, hash)
	if err != nil {
		return "", false, fmt.Errorf("checking for existing record: %w", err)
	}
	if exists {
		e.logger.Debug("payload already indexed",
			zap.String("namespace", namespace),
			zap.String("hash", hash),
		)
		e.publish(ctx, namespace, hash, mediaType, true)
		return hash, true, nil
	}

	embedding, err := e.embedImage(ctx, payload)
	if err != nil {
		return "", false, err
	}

	rec := record.New(namespace, payload, mediaType, embedding)

	inserted, err := e.insertIfAbsent(ctx, rec)
	if err != nil {
		return "", false, fmt.Errorf("persisting record %s: %w", hash, err)
	}

	e.logger.Info("indexed document",
		zap.String("namespace", namespace),
		zap.String("hash", hash),
		zap.Int("tokens", len(embedding)),
		zap.Int("dim", rec.Dim),
		zap.Bool("duplicate", !inserted),
	)

	e.publish(ctx, namespace, hash, mediaType, !inserted)
	return hash, !inserted, nil
}

// IndexPages splits a multi-page document and indexes each page through
// Index. Partial failure is a partial success: the returned result carries
// the hashes that made it in alongside per-page failures.
func (e *Engine) IndexPages(ctx context.Context, namespace string, document []byte) (*PageResult, error) {
	if e.splitter == nil {
		return nil, fmt.Errorf("page splitter is not configured")
	}

	pages, err := e.splitter.Split(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("splitting document: %w", err)
	}

	e.logger.Info("document split into pages",
		zap.String("namespace", namespace),
		zap.Int("pages", len(pages)),
	)

	result := &PageResult{}
	for i, page := range pages {
		hash, _, err := e.Index(ctx, namespace, page, "image/png")
		if err != nil {
			e.logger.Warn("page failed to index",
				zap.String("namespace", namespace),
				zap.Int("page", i+1),
				zap.Error(err),
			)
			result.Failures = append(result.Failures, PageFailure{
				Page: i + 1,
				Err:  err.Error(),
			})
			continue
		}
		result.Hashes = append(result.Hashes, hash)
	}

	return result, nil
}

// Query embeds the query text and ranks every record in the namespace by
// late-interaction similarity, returning the top k matches. An empty
// namespace yields an empty result, not an error.
//
// The candidate set is the namespace as of the List call; records written
// concurrently may or may not be included.
func (e *Engine) Query(ctx context.Context, namespace, text string, k int) ([]Match, error) {
	if namespace == "" {
		return nil, fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	queryEmbedding, err := e.embedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	queryDim := len(queryEmbedding[0])
	normalizedQuery := Normalize(queryEmbedding, e.cfg.TargetLen)

	recs, err := e.list(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("loading candidate set: %w", err)
	}
	if len(recs) == 0 {
		e.logger.Debug("query against empty namespace",
			zap.String("namespace", namespace),
		)
		return []Match{}, nil
	}

	// Refuse incompatible shapes before scoring; mixing dimensions would
	// silently produce meaningless scores.
	candidates := make([][][]float32, len(recs))
	for i, rec := range recs {
		if rec.Dim != queryDim {
			return nil, &ShapeMismatchError{
				Namespace:   namespace,
				ContentHash: rec.ContentHash,
				Want:        queryDim,
				Got:         rec.Dim,
			}
		}
		candidates[i] = Normalize(rec.Embedding, e.cfg.TargetLen)
	}

	scores := ScoreAll(normalizedQuery, candidates, e.cfg.Metric)
	scored := make([]Scored, len(scores))
	for i, s := range scores {
		scored[i] = Scored{Ordinal: i, Score: s}
	}

	ranked := TopK(scored, k)

	matches := make([]Match, len(ranked))
	for i, r := range ranked {
		rec := recs[r.Ordinal]
		matches[i] = Match{
			ContentHash: rec.ContentHash,
			MediaType:   rec.MediaType,
			Payload:     rec.Payload,
			Score:       r.Score,
			CreatedAt:   rec.CreatedAt,
		}
	}

	e.logger.Debug("query complete",
		zap.String("namespace", namespace),
		zap.Int("candidates", len(recs)),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

// Answer retrieves the best-matching page for the question and synthesizes
// an answer grounded on it. Returns ErrNoMatch when the namespace is empty.
func (e *Engine) Answer(ctx context.Context, namespace, question string) (*AnswerOutput, error) {
	if e.synth == nil {
		return nil, fmt.Errorf("answer synthesizer is not configured")
	}

	matches, err := e.Query(ctx, namespace, question, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoMatch
	}

	best := matches[0]
	text, err := e.synth.Answer(ctx, question, best.Payload)
	if err != nil {
		return nil, fmt.Errorf("synthesizing answer from %s: %w", best.ContentHash, err)
	}

	return &AnswerOutput{
		Answer: text,
		Match:  best,
	}, nil
}

// embedImage runs one bounded, timeout-guarded generator call and validates
// its output shape.
func (e *Engine) embedImage(ctx context.Context, payload []byte) ([][]float32, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for generator slot: %v", embeddings.ErrGeneration, err)
	}
	defer e.sem.Release(1)

	embedCtx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
	defer cancel()

	embedding, err := e.generator.EmbedImage(embedCtx, payload)
	if err != nil {
		return nil, fmt.Errorf("embedding image: %w", err)
	}

	if err := validateEmbedding(embedding); err != nil {
		return nil, err
	}

	return embedding, nil
}

func (e *Engine) embedQuery(ctx context.Context, text string) ([][]float32, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for generator slot: %v", embeddings.ErrGeneration, err)
	}
	defer e.sem.Release(1)

	embedCtx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
	defer cancel()

	embedding, err := e.generator.EmbedQuery(embedCtx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	if err := validateEmbedding(embedding); err != nil {
		return nil, err
	}

	return embedding, nil
}

func (e *Engine) has(ctx context.Context, namespace, hash string) (bool, error) {
	storeCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	return e.store.Has(storeCtx, namespace, hash)
}

func (e *Engine) insertIfAbsent(ctx context.Context, rec *record.Record) (bool, error) {
	storeCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	return e.store.InsertIfAbsent(storeCtx, rec)
}

func (e *Engine) list(ctx context.Context, namespace string) ([]*record.Record, error) {
	storeCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	return e.store.List(storeCtx, namespace)
}

// publish emits an indexing event. Best effort: a failing event stream must
// not fail an index that already persisted.
func (e *Engine) publish(ctx context.Context, namespace, hash, mediaType string, duplicate bool) {
	event := eventstream.NewDocumentIndexedEvent(namespace, hash, mediaType, duplicate)
	if err := e.publisher.PublishIndexed(ctx, event); err != nil {
		e.logger.Warn("failed to publish indexing event",
			zap.String("event_id", event.EventID),
			zap.String("hash", hash),
			zap.Error(err),
		)
	}
}

func validateEmbedding(embedding [][]float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: generator returned an empty sequence", embeddings.ErrGeneration)
	}

	dim := len(embedding[0])
	if dim == 0 {
		return fmt.Errorf("%w: generator returned zero-width vectors", embeddings.ErrGeneration)
	}

	for i, row := range embedding {
		if len(row) != dim {
			return fmt.Errorf("%w: ragged sequence: row %d has %d values, expected %d",
				embeddings.ErrGeneration, i, len(row), dim)
		}
	}

	return nil
}
