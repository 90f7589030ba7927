package csindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/document"
	"github.com/kailas-cloud/csindex/internal/domain/field"
)

// IndexOption configures a TypedIndex.
type IndexOption func(*indexConfig)

type indexConfig struct {
	name       string
	model      string
	className  string
	domainName string
}

// WithIndexName sets the registry name (default "namespace.model").
func WithIndexName(name string) IndexOption {
	return func(c *indexConfig) { c.name = name }
}

// WithModel sets the record model (default the lower-cased Go type name).
func WithModel(model string) IndexOption {
	return func(c *indexConfig) { c.model = model }
}

// WithClassName sets the class used to derive the domain name
// (default the Go type name plus "Index").
func WithClassName(class string) IndexOption {
	return func(c *indexConfig) { c.className = class }
}

// WithDomainName overrides the derived domain name: the domain becomes
// "{prefix}-{name}".
func WithDomainName(name string) IndexOption {
	return func(c *indexConfig) { c.domainName = name }
}

// TypedIndex is a schema-first index over a Go struct type. Fields are
// declared with csindex struct tags and parsed once at construction.
type TypedIndex[T any] struct {
	name       string
	className  string
	domainName string
	recordType RecordType
	client     *Client
	meta       *schemaMeta
}

var _ Index = (*TypedIndex[struct{}])(nil)

// NewIndex creates a typed index for records of namespace and registers it
// with client. A nil client yields an unregistered index.
func NewIndex[T any](client *Client, namespace string, opts ...IndexOption) (*TypedIndex[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", namespace, err)
	}

	cfg := indexConfig{
		model:     strings.ToLower(meta.typ.Name()),
		className: meta.typ.Name() + "Index",
	}
	for _, o := range opts {
		o(&cfg)
	}
	rt := RecordType{Namespace: strings.ToLower(namespace), Model: strings.ToLower(cfg.model)}
	if rt.Namespace == "" || rt.Model == "" || strings.Contains(rt.Namespace, ".") {
		return nil, fmt.Errorf("new index: %w: invalid record type %q", domain.ErrConfiguration, rt)
	}
	if cfg.name == "" {
		cfg.name = rt.String()
	}

	idx := &TypedIndex[T]{
		name:       cfg.name,
		className:  cfg.className,
		domainName: cfg.domainName,
		recordType: rt,
		client:     client,
		meta:       meta,
	}
	if client != nil {
		if err := client.Register(idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Name implements Index.
func (idx *TypedIndex[T]) Name() string { return idx.name }

// ClassName implements Index.
func (idx *TypedIndex[T]) ClassName() string { return idx.className }

// Namespace implements Index.
func (idx *TypedIndex[T]) Namespace() string { return idx.recordType.Namespace }

// DomainName implements Index.
func (idx *TypedIndex[T]) DomainName() string { return idx.domainName }

// RecordType implements Index.
func (idx *TypedIndex[T]) RecordType() RecordType { return idx.recordType }

// Fields implements Index.
func (idx *TypedIndex[T]) Fields() []field.Declaration { return idx.meta.declarations() }

// RecordRef implements Index. rec must be a T or *T.
func (idx *TypedIndex[T]) RecordRef(rec any) (RecordRef, bool) {
	v, ok := idx.meta.value(rec)
	if !ok {
		return RecordRef{}, false
	}
	return RecordRef{Type: idx.recordType, PK: idx.meta.pk(v)}, true
}

// FullPrepare implements Index.
func (idx *TypedIndex[T]) FullPrepare(rec any) (document.Document, error) {
	v, ok := idx.meta.value(rec)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a %s record", domain.ErrIndexNotRegistered, rec, idx.recordType)
	}
	if idx.meta.pk(v) == "" {
		return nil, fmt.Errorf("record has no primary key")
	}
	return idx.meta.toDocument(v)
}

// Update prepares and uploads items.
func (idx *TypedIndex[T]) Update(ctx context.Context, items []T, allowPartial bool) (Report, error) {
	if err := idx.registered(); err != nil {
		return Report{}, err
	}
	records := make([]any, len(items))
	for i := range items {
		records[i] = items[i]
	}
	return idx.client.pipeline.Update(ctx, idx, records, allowPartial)
}

// Remove deletes the document of item.
func (idx *TypedIndex[T]) Remove(ctx context.Context, item T) error {
	if err := idx.registered(); err != nil {
		return err
	}
	return idx.client.RemoveRecord(ctx, item)
}

func (idx *TypedIndex[T]) registered() error {
	if idx.client == nil {
		return fmt.Errorf("csindex: %w: %s has no client", domain.ErrIndexNotRegistered, idx.name)
	}
	return nil
}

// Search returns a fluent search builder limited to this index.
func (idx *TypedIndex[T]) Search() *SearchBuilder[T] {
	return &SearchBuilder[T]{idx: idx}
}
