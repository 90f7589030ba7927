package registry

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/document"
	"github.com/kailas-cloud/csindex/internal/domain/field"
)

// MapRecord is a schemaless record: string attributes keyed by name.
type MapRecord struct {
	Type   domain.RecordType
	PK     string
	Values map[string]string
}

// Ref returns the record reference.
func (m MapRecord) Ref() domain.RecordRef {
	return domain.RecordRef{Type: m.Type, PK: m.PK}
}

// FieldSource binds a declared field to the record attribute it reads.
type FieldSource struct {
	field.Declaration
	// Source is the attribute name; empty means the field name.
	Source string
}

// Definition describes a declared index.
type Definition struct {
	Name       string
	Namespace  string
	ClassName  string
	DomainName string
	RecordType domain.RecordType
	Fields     []FieldSource
}

// DeclaredIndex indexes MapRecords according to a Definition.
type DeclaredIndex struct {
	def Definition
}

var _ Index = (*DeclaredIndex)(nil)

// NewDeclaredIndex validates a definition.
func NewDeclaredIndex(def Definition) (*DeclaredIndex, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: index name is required", domain.ErrConfiguration)
	}
	if def.RecordType.IsZero() {
		return nil, fmt.Errorf("%w: index %q: record type is required", domain.ErrConfiguration, def.Name)
	}
	if def.Namespace == "" {
		def.Namespace = def.RecordType.Namespace
	}
	if def.ClassName == "" {
		def.ClassName = def.Name
	}
	for _, f := range def.Fields {
		if !f.Kind.IsValid() {
			return nil, fmt.Errorf("index %q: field %q: %w: %q", def.Name, f.Name, domain.ErrUnsupportedFieldKind, f.Kind)
		}
	}
	return &DeclaredIndex{def: def}, nil
}

func (d *DeclaredIndex) Name() string                  { return d.def.Name }
func (d *DeclaredIndex) ClassName() string             { return d.def.ClassName }
func (d *DeclaredIndex) Namespace() string             { return d.def.Namespace }
func (d *DeclaredIndex) DomainName() string            { return d.def.DomainName }
func (d *DeclaredIndex) RecordType() domain.RecordType { return d.def.RecordType }

// Fields returns the field declarations.
func (d *DeclaredIndex) Fields() []field.Declaration {
	out := make([]field.Declaration, len(d.def.Fields))
	for i, f := range d.def.Fields {
		out[i] = f.Declaration
	}
	return out
}

func (d *DeclaredIndex) record(rec any) (MapRecord, bool) {
	var m MapRecord
	switch v := rec.(type) {
	case MapRecord:
		m = v
	case *MapRecord:
		if v == nil {
			return MapRecord{}, false
		}
		m = *v
	default:
		return MapRecord{}, false
	}
	return m, m.Type == d.def.RecordType
}

// RecordRef implements Index.
func (d *DeclaredIndex) RecordRef(rec any) (domain.RecordRef, bool) {
	m, ok := d.record(rec)
	if !ok {
		return domain.RecordRef{}, false
	}
	return m.Ref(), true
}

// FullPrepare reads each field from its source attribute. Missing attributes
// fall back to the declared default or are omitted; multi-valued attributes
// are comma separated.
func (d *DeclaredIndex) FullPrepare(rec any) (document.Document, error) {
	m, ok := d.record(rec)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a %s record", domain.ErrIndexNotRegistered, rec, d.def.RecordType)
	}
	if m.PK == "" {
		return nil, fmt.Errorf("record has no primary key")
	}

	doc := make(document.Document, len(d.def.Fields))
	for _, f := range d.def.Fields {
		src := f.Source
		if src == "" {
			src = f.Name
		}
		raw, present := m.Values[src]
		if !present {
			if v, ok, _ := f.DefaultString(); ok {
				raw, present = v, true
			}
		}
		if !present {
			continue
		}

		v, err := prepareValue(f.Declaration, raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		doc[f.Name] = v
	}
	return doc, nil
}

func prepareValue(decl field.Declaration, raw string) (any, error) {
	if !decl.MultiValued {
		return prepareScalar(decl, strings.TrimSpace(raw))
	}
	var out []any
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := prepareScalar(decl, part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func prepareScalar(decl field.Declaration, raw string) (any, error) {
	if decl.Kind == field.KindUint {
		return field.DecodeUint(raw)
	}
	return raw, nil
}
