package api

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/retina/pkg/answer"
	"github.com/papercomputeco/retina/pkg/embeddings"
	"github.com/papercomputeco/retina/pkg/engine"
	"github.com/papercomputeco/retina/pkg/splitter"
)

// ErrorResponse is the JSON error envelope for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// IndexResponse reports a single-image indexing result.
type IndexResponse struct {
	Status      string `json:"status"`
	ContentHash string `json:"content_hash"`
	Duplicate   bool   `json:"duplicate"`
}

// QueryRequest is the body for POST /query and POST /answer.
type QueryRequest struct {
	Namespace string `json:"namespace"`
	Query     string `json:"query"`
	TopK      int    `json:"top_k,omitempty"`
}

// QueryResponse carries the ranked matches for a query.
type QueryResponse struct {
	Results []engine.Match `json:"results"`
	Count   int            `json:"count"`
	TookMs  int64          `json:"took_ms"`
}

// AnswerResponse carries a synthesized answer and its grounding page.
type AnswerResponse struct {
	Answer string       `json:"answer"`
	Match  engine.Match `json:"match"`
	TookMs int64        `json:"took_ms"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealth reports liveness and store reachability.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	if _, err := s.store.Namespaces(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// handleIndexImage handles POST /index/image requests: a multipart "file"
// field plus a "namespace" form value (default "default").
func (s *Server) handleIndexImage(c *fiber.Ctx) error {
	namespace := c.FormValue("namespace", "default")

	payload, mediaType, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	hash, duplicate, err := s.engine.Index(c.Context(), namespace, payload, mediaType)
	if err != nil {
		s.logger.Error("index failed",
			zap.String("namespace", namespace),
			zap.Error(err),
		)
		return s.errorJSON(c, err)
	}

	return c.JSON(IndexResponse{
		Status:      "success",
		ContentHash: hash,
		Duplicate:   duplicate,
	})
}

// handleIndexPDF handles POST /index/pdf requests. The document is split
// into pages and each page indexed independently; a page failure does not
// roll back pages already stored.
func (s *Server) handleIndexPDF(c *fiber.Ctx) error {
	namespace := c.FormValue("namespace", "default")

	payload, _, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	result, err := s.engine.IndexPages(c.Context(), namespace, payload)
	if err != nil {
		s.logger.Error("pdf index failed",
			zap.String("namespace", namespace),
			zap.Error(err),
		)
		return s.errorJSON(c, err)
	}

	status := "success"
	if len(result.Failures) > 0 {
		status = "partial"
	}

	return c.JSON(fiber.Map{
		"status":   status,
		"hashes":   result.Hashes,
		"failures": result.Failures,
	})
}

// handleQuery handles POST /query requests.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Namespace == "" {
		req.Namespace = "default"
	}

	start := time.Now()
	matches, err := s.engine.Query(c.Context(), req.Namespace, req.Query, req.TopK)
	if err != nil {
		s.logger.Error("query failed",
			zap.String("namespace", req.Namespace),
			zap.Error(err),
		)
		return s.errorJSON(c, err)
	}

	return c.JSON(QueryResponse{
		Results: matches,
		Count:   len(matches),
		TookMs:  time.Since(start).Milliseconds(),
	})
}

// handleAnswer handles POST /answer requests: retrieve the best page, then
// synthesize a grounded answer from it.
func (s *Server) handleAnswer(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Namespace == "" {
		req.Namespace = "default"
	}

	start := time.Now()
	output, err := s.engine.Answer(c.Context(), req.Namespace, req.Query)
	if err != nil {
		if !errors.Is(err, engine.ErrNoMatch) {
			s.logger.Error("answer failed",
				zap.String("namespace", req.Namespace),
				zap.Error(err),
			)
		}
		return s.errorJSON(c, err)
	}

	return c.JSON(AnswerResponse{
		Answer: output.Answer,
		Match:  output.Match,
		TookMs: time.Since(start).Milliseconds(),
	})
}

// handleListNamespaces returns every namespace with at least one record.
func (s *Server) handleListNamespaces(c *fiber.Ctx) error {
	namespaces, err := s.store.Namespaces(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list namespaces", Retryable: true})
	}

	return c.JSON(fiber.Map{
		"namespaces": namespaces,
		"count":      len(namespaces),
	})
}

// handleNamespaceStats returns record counts for one namespace.
func (s *Server) handleNamespaceStats(c *fiber.Ctx) error {
	name := c.Params("name")

	recs, err := s.store.List(c.Context(), name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list records", Retryable: true})
	}

	return c.JSON(fiber.Map{
		"namespace": name,
		"records":   len(recs),
	})
}

// handleDeleteNamespace removes every record in a namespace.
func (s *Server) handleDeleteNamespace(c *fiber.Ctx) error {
	name := c.Params("name")

	if err := s.store.DeleteNamespace(c.Context(), name); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete namespace", Retryable: true})
	}

	return c.JSON(fiber.Map{
		"status":    "success",
		"namespace": name,
	})
}

// handleDeleteRecord removes a single record by hash.
func (s *Server) handleDeleteRecord(c *fiber.Ctx) error {
	name := c.Params("name")
	hash := c.Params("hash")

	if err := s.store.Delete(c.Context(), name, hash); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete record", Retryable: true})
	}

	return c.JSON(fiber.Map{
		"status":    "success",
		"namespace": name,
		"hash":      hash,
	})
}

// errorJSON maps an engine error to an HTTP status and the error envelope.
// Shape mismatches are configuration conflicts (409, don't retry); upstream
// generator/synthesizer/splitter failures are bad gateways (502, retry).
func (s *Server) errorJSON(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var shapeErr *engine.ShapeMismatchError
	switch {
	case errors.As(err, &shapeErr):
		status = fiber.StatusConflict
	case errors.Is(err, engine.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, engine.ErrNoMatch):
		status = fiber.StatusNotFound
	case errors.Is(err, embeddings.ErrGeneration),
		errors.Is(err, answer.ErrSynthesis),
		errors.Is(err, splitter.ErrSplit):
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(ErrorResponse{
		Error:     err.Error(),
		Retryable: engine.Retryable(err),
	})
}

// readUpload extracts the uploaded file from a multipart request.
func readUpload(c *fiber.Ctx) ([]byte, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", errors.New("multipart file field is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", errors.New("could not open uploaded file")
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.New("could not read uploaded file")
	}

	return payload, fileHeader.Header.Get("Content-Type"), nil
}
