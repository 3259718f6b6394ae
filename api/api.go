package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/retina/pkg/engine"
	"github.com/papercomputeco/retina/pkg/record"
)

// Server is the API server for indexing, querying, and managing the
// retina document corpus.
type Server struct {
	config Config
	engine *engine.Engine
	store  record.Store
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The engine and store are injected to
// allow sharing with other components (e.g. the directory watcher).
func NewServer(config Config, eng *engine.Engine, store record.Store, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Page images and PDFs arrive inline.
		BodyLimit: 64 * 1024 * 1024,
	})

	s := &Server{
		config: config,
		engine: eng,
		store:  store,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/health", s.handleHealth)
	app.Post("/index/image", s.handleIndexImage)
	app.Post("/index/pdf", s.handleIndexPDF)
	app.Post("/query", s.handleQuery)
	app.Post("/answer", s.handleAnswer)
	app.Get("/namespaces", s.handleListNamespaces)
	app.Get("/namespaces/:name/stats", s.handleNamespaceStats)
	app.Delete("/namespaces/:name", s.handleDeleteNamespace)
	app.Delete("/namespaces/:name/records/:hash", s.handleDeleteRecord)

	return s
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
