package record

import "context"

// Store is the persistence interface consumed by the retrieval engine.
//
// Implementations must make InsertIfAbsent genuinely atomic (unique index or
// conditional write): when two writers race on the same (namespace, hash),
// exactly one row is ever created and the loser observes inserted=false with
// no error. A non-atomic check-then-insert does not satisfy this interface.
type Store interface {
	// InsertIfAbsent stores rec unless a record with the same
	// (namespace, content hash) already exists. Returns true if the record
	// was newly inserted, false if it already existed (a no-op, not an
	// error).
	InsertIfAbsent(ctx context.Context, rec *Record) (bool, error)

	// Has reports whether a record exists.
	Has(ctx context.Context, namespace, hash string) (bool, error)

	// Get retrieves a single record by its identity.
	Get(ctx context.Context, namespace, hash string) (*Record, error)

	// List returns every record in the namespace in insertion order.
	// The order is the deterministic tie-break key for equal query scores.
	List(ctx context.Context, namespace string) ([]*Record, error)

	// Delete removes a single record. Deleting a missing record is a no-op.
	Delete(ctx context.Context, namespace, hash string) error

	// DeleteNamespace removes every record in the namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Namespaces returns the distinct namespaces with at least one record.
	Namespaces(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
