package domain

import (
	"fmt"
	"strings"
)

// RecordType identifies a kind of record as namespace + model, e.g. "notes.note".
type RecordType struct {
	Namespace string
	Model     string
}

// String renders the type tag stored in every document.
func (t RecordType) String() string {
	return t.Namespace + "." + t.Model
}

// IsZero reports whether the type is unset.
func (t RecordType) IsZero() bool {
	return t.Namespace == "" && t.Model == ""
}

// ParseRecordType parses a "namespace.model" type tag.
func ParseRecordType(s string) (RecordType, error) {
	ns, model, ok := strings.Cut(s, ".")
	if !ok || ns == "" || model == "" || strings.Contains(model, ".") {
		return RecordType{}, fmt.Errorf("invalid record type %q", s)
	}
	return RecordType{Namespace: strings.ToLower(ns), Model: strings.ToLower(model)}, nil
}

// RecordRef points at a single record: type plus primary key.
type RecordRef struct {
	Type RecordType
	PK   string
}

// Identifier renders "namespace.model.pk".
func (r RecordRef) Identifier() string {
	return r.Type.String() + "." + r.PK
}

// ParseIdentifier parses "namespace.model.pk". The primary key may not contain dots.
func ParseIdentifier(s string) (RecordRef, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return RecordRef{}, fmt.Errorf("invalid identifier %q (want namespace.model.pk)", s)
	}
	return RecordRef{
		Type: RecordType{Namespace: strings.ToLower(parts[0]), Model: strings.ToLower(parts[1])},
		PK:   parts[2],
	}, nil
}
