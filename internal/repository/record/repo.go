package record

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/registry"
)

// DefaultKeyPrefix namespaces record hashes in a shared keyspace.
const DefaultKeyPrefix = "csindex:rec:"

// typeField marks every stored hash so records without values still exist.
const typeField = "__type"

// store is the consumer interface for records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo keeps source records as one hash per record.
type Repo struct {
	store  store
	prefix string
}

// New creates a record repository. An empty prefix selects DefaultKeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

func (r *Repo) key(ref domain.RecordRef) string {
	return r.prefix + ref.Type.String() + ":" + ref.PK
}

// Put stores a record, replacing any previous values. Returns true if created.
func (r *Repo) Put(ctx context.Context, rec registry.MapRecord) (bool, error) {
	ref := rec.Ref()
	if rec.Type.IsZero() || rec.PK == "" {
		return false, fmt.Errorf("%w: record %q has no type or primary key", domain.ErrConfiguration, ref.Identifier())
	}
	key := r.key(ref)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	if exists {
		if err := r.store.Del(ctx, key); err != nil {
			return false, fmt.Errorf("replace %s: %w", key, err)
		}
	}

	fields := make(map[string]string, len(rec.Values)+1)
	for k, v := range rec.Values {
		fields[k] = v
	}
	fields[typeField] = rec.Type.String()

	if err := r.store.HSet(ctx, key, fields); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}
	return !exists, nil
}

// Get loads one record.
func (r *Repo) Get(ctx context.Context, ref domain.RecordRef) (registry.MapRecord, error) {
	key := r.key(ref)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return registry.MapRecord{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return registry.MapRecord{}, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, ref.Identifier())
	}
	return toRecord(ref, m), nil
}

// List loads every record of a type, ordered by key.
func (r *Repo) List(ctx context.Context, t domain.RecordType) ([]registry.MapRecord, error) {
	prefix := r.prefix + t.String() + ":"
	keys, err := r.store.Scan(ctx, escapeGlob(prefix)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t, err)
	}

	out := make([]registry.MapRecord, 0, len(keys))
	for i, key := range keys {
		if len(hashes[i]) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		ref := domain.RecordRef{Type: t, PK: strings.TrimPrefix(key, prefix)}
		out = append(out, toRecord(ref, hashes[i]))
	}
	return out, nil
}

// Load resolves refs to stored records in ref order. Refs without a stored
// record are skipped.
func (r *Repo) Load(ctx context.Context, refs []domain.RecordRef) ([]registry.MapRecord, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = r.key(ref)
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load %d records: %w", len(refs), err)
	}

	out := make([]registry.MapRecord, 0, len(refs))
	for i, ref := range refs {
		if len(hashes[i]) == 0 {
			continue
		}
		out = append(out, toRecord(ref, hashes[i]))
	}
	return out, nil
}

// Delete removes a record.
func (r *Repo) Delete(ctx context.Context, ref domain.RecordRef) error {
	key := r.key(ref)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrRecordNotFound, ref.Identifier())
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func toRecord(ref domain.RecordRef, m map[string]string) registry.MapRecord {
	values := make(map[string]string, len(m))
	for k, v := range m {
		if k == typeField {
			continue
		}
		values[k] = v
	}
	return registry.MapRecord{Type: ref.Type, PK: ref.PK, Values: values}
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
