package engine

import (
	"errors"
	"fmt"
)

// ErrNoMatch is returned by Answer when the namespace holds no records to
// answer from. Query treats an empty namespace as an empty result instead.
var ErrNoMatch = errors.New("no indexed documents to answer from")

// ErrInvalidInput is returned for malformed requests (empty payload, blank
// query text). Retrying without changing the input will not help.
var ErrInvalidInput = errors.New("invalid input")

// ShapeMismatchError reports a stored embedding whose dimensionality
// disagrees with the current generator's output. Comparing the two would
// silently produce meaningless scores, so the query is refused before
// scoring. Retrying will not help: the namespace needs re-indexing or a
// generator downgrade.
type ShapeMismatchError struct {
	Namespace   string
	ContentHash string
	Want        int
	Got         int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("embedding shape mismatch in %s/%s: stored dimension %d, generator dimension %d",
		e.Namespace, e.ContentHash, e.Got, e.Want)
}

// Retryable reports whether the caller can expect a retry of the failed
// operation to succeed without intervention. Shape mismatches and malformed
// inputs are terminal; generator and storage failures are transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var shapeErr *ShapeMismatchError
	if errors.As(err, &shapeErr) {
		return false
	}

	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNoMatch) {
		return false
	}

	return true
}
