// Package splitter defines the document-to-image decomposition capability
// consumed by the indexing pipeline.
package splitter

import (
	"context"
	"errors"
)

// ErrSplit is returned when page decomposition fails.
var ErrSplit = errors.New("page split failed")

// PageSplitter decomposes a multi-page document (typically a PDF) into one
// rasterized image per page. Rasterization parameters (DPI, format) are the
// splitter's concern.
type PageSplitter interface {
	// Split returns the document's pages as image bytes, in page order.
	Split(ctx context.Context, document []byte) ([][]byte, error)

	// Close releases any resources held by the splitter.
	Close() error
}
