package records

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/field"
	"github.com/kailas-cloud/csindex/internal/registry"
	"github.com/kailas-cloud/csindex/internal/usecase/pipeline"
)

// --- Mocks ---

type mockStore struct {
	recs    map[string]registry.MapRecord
	putErr  error
	listErr error
	deleted []string
}

func newMockStore() *mockStore {
	return &mockStore{recs: make(map[string]registry.MapRecord)}
}

func (m *mockStore) Put(_ context.Context, rec registry.MapRecord) (bool, error) {
	if m.putErr != nil {
		return false, m.putErr
	}
	id := rec.Ref().Identifier()
	_, exists := m.recs[id]
	m.recs[id] = rec
	return !exists, nil
}

func (m *mockStore) Get(_ context.Context, ref domain.RecordRef) (registry.MapRecord, error) {
	rec, ok := m.recs[ref.Identifier()]
	if !ok {
		return registry.MapRecord{}, domain.ErrRecordNotFound
	}
	return rec, nil
}

func (m *mockStore) List(_ context.Context, t domain.RecordType) ([]registry.MapRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []registry.MapRecord
	for _, rec := range m.recs {
		if rec.Type == t {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockStore) Delete(_ context.Context, ref domain.RecordRef) error {
	if _, ok := m.recs[ref.Identifier()]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(m.recs, ref.Identifier())
	m.deleted = append(m.deleted, ref.Identifier())
	return nil
}

func (m *mockStore) Load(_ context.Context, refs []domain.RecordRef) ([]registry.MapRecord, error) {
	var out []registry.MapRecord
	for _, ref := range refs {
		if rec, ok := m.recs[ref.Identifier()]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

type mockIndexer struct {
	updates [][]any
	removed []string
	err     error
}

func (m *mockIndexer) Update(_ context.Context, _ registry.Index, recs []any, _ bool) (pipeline.Report, error) {
	m.updates = append(m.updates, recs)
	if m.err != nil {
		return pipeline.Report{Failed: len(recs)}, m.err
	}
	return pipeline.Report{Prepared: len(recs), Batches: 1}, nil
}

func (m *mockIndexer) Remove(_ context.Context, identifier string) error {
	m.removed = append(m.removed, identifier)
	return m.err
}

var noteType = domain.RecordType{Namespace: "notes", Model: "note"}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	idx, err := registry.NewDeclaredIndex(registry.Definition{
		Name:       "notes",
		RecordType: noteType,
		Fields: []registry.FieldSource{
			{Declaration: field.Declaration{Name: "title", Kind: field.KindText, Stored: true}},
		},
	})
	if err != nil {
		t.Fatalf("NewDeclaredIndex: %v", err)
	}
	reg := registry.New()
	if err := reg.Register(idx); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

func note(pk string) registry.MapRecord {
	return registry.MapRecord{Type: noteType, PK: pk, Values: map[string]string{"title": "t" + pk}}
}

// --- Tests ---

func TestSave_Realtime(t *testing.T) {
	store, idx := newMockStore(), &mockIndexer{}
	svc := New(store, newRegistry(t), idx, Config{Realtime: true}, nil)
	ctx := context.Background()

	created, err := svc.Save(ctx, note("1"))
	if err != nil || !created {
		t.Fatalf("Save = %v, %v", created, err)
	}
	if len(idx.updates) != 1 {
		t.Errorf("updates = %d, want 1", len(idx.updates))
	}

	if err := svc.Delete(ctx, note("1").Ref()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(idx.removed) != 1 || idx.removed[0] != "notes.note.1" {
		t.Errorf("removed = %v", idx.removed)
	}
}

func TestSave_Deferred(t *testing.T) {
	store, idx := newMockStore(), &mockIndexer{}
	svc := New(store, newRegistry(t), idx, Config{}, nil)

	if _, err := svc.Save(context.Background(), note("1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(idx.updates) != 0 {
		t.Error("non-realtime save must not index")
	}
	if _, err := svc.Get(context.Background(), note("1").Ref()); err != nil {
		t.Errorf("Get: %v", err)
	}
}

func TestSave_UnindexedType(t *testing.T) {
	store := newMockStore()
	svc := New(store, newRegistry(t), &mockIndexer{}, Config{}, nil)
	_, err := svc.Save(context.Background(), registry.MapRecord{Type: domain.RecordType{Namespace: "x", Model: "y"}, PK: "1"})
	if !errors.Is(err, domain.ErrIndexNotRegistered) {
		t.Fatalf("error = %v, want ErrIndexNotRegistered", err)
	}
	if len(store.recs) != 0 {
		t.Error("unindexed record must not be stored")
	}
}

func TestSave_IndexFailureKeepsRecord(t *testing.T) {
	store := newMockStore()
	svc := New(store, newRegistry(t), &mockIndexer{err: domain.ErrSchemaReconciliation}, Config{Realtime: true}, nil)

	created, err := svc.Save(context.Background(), note("1"))
	if !errors.Is(err, domain.ErrSchemaReconciliation) {
		t.Fatalf("error = %v", err)
	}
	if !created || len(store.recs) != 1 {
		t.Error("record should be stored even when indexing fails")
	}
}

func TestDelete_Missing(t *testing.T) {
	idx := &mockIndexer{}
	svc := New(newMockStore(), newRegistry(t), idx, Config{Realtime: true}, nil)
	if err := svc.Delete(context.Background(), note("9").Ref()); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("error = %v", err)
	}
	if len(idx.removed) != 0 {
		t.Error("missing record must not be unindexed")
	}
}

func TestSync_Chunks(t *testing.T) {
	store, idx := newMockStore(), &mockIndexer{}
	for _, pk := range []string{"1", "2", "3", "4", "5"} {
		_, _ = store.Put(context.Background(), note(pk))
	}
	svc := New(store, newRegistry(t), idx, Config{SyncBatchSize: 2}, nil)

	report, err := svc.Sync(context.Background(), "notes", false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(idx.updates) != 3 {
		t.Errorf("updates = %d, want 3", len(idx.updates))
	}
	if report.Prepared != 5 || report.Batches != 3 {
		t.Errorf("report = %+v", report)
	}
}

func TestSync_Errors(t *testing.T) {
	ctx := context.Background()

	svc := New(newMockStore(), newRegistry(t), &mockIndexer{}, Config{}, nil)
	if _, err := svc.Sync(ctx, "missing", false); !errors.Is(err, domain.ErrIndexNotRegistered) {
		t.Errorf("unknown index: error = %v", err)
	}

	store := newMockStore()
	store.listErr = errors.New("conn reset")
	if _, err := New(store, newRegistry(t), &mockIndexer{}, Config{}, nil).Sync(ctx, "notes", false); !errors.Is(err, store.listErr) {
		t.Errorf("list failure: error = %v", err)
	}

	store = newMockStore()
	_, _ = store.Put(ctx, note("1"))
	idx := &mockIndexer{err: domain.ErrPartialPreparation}
	report, err := New(store, newRegistry(t), idx, Config{}, nil).Sync(ctx, "notes", false)
	if !errors.Is(err, domain.ErrPartialPreparation) || report.Failed != 1 {
		t.Errorf("update failure: report = %+v, error = %v", report, err)
	}

	empty := &mockIndexer{}
	if _, err := New(newMockStore(), newRegistry(t), empty, Config{}, nil).Sync(ctx, "notes", false); err != nil || len(empty.updates) != 0 {
		t.Errorf("empty sync: updates = %d, error = %v", len(empty.updates), err)
	}
}

func TestResolve(t *testing.T) {
	store := newMockStore()
	_, _ = store.Put(context.Background(), note("1"))
	svc := New(store, newRegistry(t), &mockIndexer{}, Config{}, nil)

	recs, err := svc.Resolve(context.Background(), []domain.RecordRef{note("1").Ref(), note("2").Ref()})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(recs) != 1 || recs[0].PK != "1" {
		t.Errorf("Resolve = %+v", recs)
	}
}
