package record

import "errors"

// ErrConnection is returned when the storage backend is unreachable.
var ErrConnection = errors.New("record store connection failed")

// NotFoundError is returned when a record doesn't exist in the store.
type NotFoundError struct {
	Namespace string
	Hash      string
}

func (e NotFoundError) Error() string {
	if e.Hash == "" {
		return "record not found"
	}

	return "record not found: " + e.Namespace + "/" + e.Hash
}
