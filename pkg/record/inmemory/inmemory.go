// Package inmemory provides an in-memory record store for tests and
// single-process deployments.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/retina/pkg/record"
)

// Store implements record.Store using maps guarded by a mutex. Insertion
// order is tracked per namespace so List stays deterministic.
type Store struct {
	mu sync.RWMutex

	// records maps namespace -> content hash -> record.
	records map[string]map[string]*record.Record

	// order maps namespace -> hashes in insertion order.
	order map[string][]string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]map[string]*record.Record),
		order:   make(map[string][]string),
	}
}

// InsertIfAbsent stores rec unless its (namespace, hash) already exists.
// The map mutation happens under a single lock, so the insert is atomic.
func (s *Store) InsertIfAbsent(_ context.Context, rec *record.Record) (bool, error) {
	if rec == nil {
		return false, errors.New("cannot store nil record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.records[rec.Namespace]
	if !ok {
		ns = make(map[string]*record.Record)
		s.records[rec.Namespace] = ns
	}

	if _, ok := ns[rec.ContentHash]; ok {
		return false, nil
	}

	stored := *rec
	stored.CreatedAt = time.Now().UTC()
	ns[rec.ContentHash] = &stored
	s.order[rec.Namespace] = append(s.order[rec.Namespace], rec.ContentHash)
	return true, nil
}

// Has reports whether a record exists.
func (s *Store) Has(_ context.Context, namespace, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[namespace][hash]
	return ok, nil
}

// Get retrieves a record by its identity.
func (s *Store) Get(_ context.Context, namespace, hash string) (*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[namespace][hash]
	if !ok {
		return nil, record.NotFoundError{Namespace: namespace, Hash: hash}
	}

	return rec, nil
}

// List returns the namespace's records in insertion order.
func (s *Store) List(_ context.Context, namespace string) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hashes := s.order[namespace]
	recs := make([]*record.Record, 0, len(hashes))
	for _, h := range hashes {
		if rec, ok := s.records[namespace][h]; ok {
			recs = append(recs, rec)
		}
	}

	return recs, nil
}

// Delete removes a record. Missing records are a no-op.
func (s *Store) Delete(_ context.Context, namespace, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.records[namespace]
	if !ok {
		return nil
	}

	if _, ok := ns[hash]; !ok {
		return nil
	}

	delete(ns, hash)
	order := s.order[namespace]
	for i, h := range order {
		if h == hash {
			s.order[namespace] = append(order[:i:i], order[i+1:]...)
			break
		}
	}

	return nil
}

// DeleteNamespace removes every record in the namespace.
func (s *Store) DeleteNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, namespace)
	delete(s.order, namespace)
	return nil
}

// Namespaces returns the distinct namespaces with at least one record.
func (s *Store) Namespaces(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for ns, recs := range s.records {
		if len(recs) > 0 {
			names = append(names, ns)
		}
	}

	sort.Strings(names)
	return names, nil
}

// Close releases nothing; the store is plain memory.
func (s *Store) Close() error {
	return nil
}

var _ record.Store = (*Store)(nil)
