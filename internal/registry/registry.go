// Package registry holds the indexes of one connection scope.
package registry

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/document"
	"github.com/kailas-cloud/csindex/internal/domain/field"
)

// Index is a logical search index over one record type.
type Index interface {
	// Name identifies the index within its registry.
	Name() string
	// ClassName and Namespace derive the default domain name.
	ClassName() string
	Namespace() string
	// DomainName is an explicit domain name override, or "".
	DomainName() string
	RecordType() domain.RecordType
	Fields() []field.Declaration
	// RecordRef reports the reference of rec, or false when rec does not belong to this index.
	RecordRef(rec any) (domain.RecordRef, bool)
	// FullPrepare flattens rec into declared field values.
	FullPrepare(rec any) (document.Document, error)
}

// Registry is a concurrency-safe ordered set of indexes with one index per record type.
type Registry struct {
	mu      sync.RWMutex
	indexes []Index
	byName  map[string]Index
	byType  map[domain.RecordType]Index
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]Index),
		byType: make(map[domain.RecordType]Index),
	}
}

// Register adds an index. Names and record types must be unique.
func (r *Registry) Register(idx Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[idx.Name()]; ok {
		return fmt.Errorf("%w: index %q registered twice", domain.ErrConfiguration, idx.Name())
	}
	rt := idx.RecordType()
	if rt.IsZero() {
		return fmt.Errorf("%w: index %q has no record type", domain.ErrConfiguration, idx.Name())
	}
	if other, ok := r.byType[rt]; ok {
		return fmt.Errorf("%w: record type %s already indexed by %q",
			domain.ErrConfiguration, rt, other.Name())
	}

	r.indexes = append(r.indexes, idx)
	r.byName[idx.Name()] = idx
	r.byType[rt] = idx
	return nil
}

// Indexes returns all indexes in registration order.
func (r *Registry) Indexes() []Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Index, len(r.indexes))
	copy(out, r.indexes)
	return out
}

// ByName returns the named index.
func (r *Registry) ByName(name string) (Index, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrIndexNotRegistered, name)
	}
	return idx, nil
}

// Select returns the named indexes in the given order, or all indexes when names is empty.
func (r *Registry) Select(names []string) ([]Index, error) {
	if len(names) == 0 {
		return r.Indexes(), nil
	}
	out := make([]Index, 0, len(names))
	for _, name := range names {
		idx, err := r.ByName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

// ForType returns the index of a record type.
func (r *Registry) ForType(t domain.RecordType) (Index, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: record type %s", domain.ErrIndexNotRegistered, t)
	}
	return idx, nil
}

// ForRecord resolves a record instance to its owning index.
func (r *Registry) ForRecord(rec any) (Index, domain.RecordRef, error) {
	for _, idx := range r.Indexes() {
		if ref, ok := idx.RecordRef(rec); ok {
			return idx, ref, nil
		}
	}
	return nil, domain.RecordRef{}, fmt.Errorf("%w: no index for %T", domain.ErrIndexNotRegistered, rec)
}

// IsIndexed reports whether a record type is presently indexed.
func (r *Registry) IsIndexed(t domain.RecordType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byType[t]
	return ok
}

// IndexedTypes returns the indexed record types in registration order.
func (r *Registry) IndexedTypes() []domain.RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RecordType, len(r.indexes))
	for i, idx := range r.indexes {
		out[i] = idx.RecordType()
	}
	return out
}
