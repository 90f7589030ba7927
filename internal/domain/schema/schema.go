// Package schema derives the ideal CloudSearch index-field set for an index
// and compares it against what a domain actually holds.
package schema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/field"
)

// Synthetic bookkeeping fields present in every schema.
const (
	FieldRecordType = "record_type"
	FieldRecordID   = "record_id"
	FieldDocumentID = "id"
)

// InternalFieldNames lists the synthetic fields every query must return.
func InternalFieldNames() []string {
	return []string{FieldRecordID, FieldRecordType, FieldDocumentID}
}

var fieldNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Options holds the type-specific index field options.
// uint fields only carry DefaultValue; text adds facet/result; literal uses all four.
type Options struct {
	DefaultValue  *string
	FacetEnabled  bool
	ResultEnabled bool
	SearchEnabled bool
}

// Equal compares options structurally.
func (o Options) Equal(other Options) bool {
	if (o.DefaultValue == nil) != (other.DefaultValue == nil) {
		return false
	}
	if o.DefaultValue != nil && *o.DefaultValue != *other.DefaultValue {
		return false
	}
	return o.FacetEnabled == other.FacetEnabled &&
		o.ResultEnabled == other.ResultEnabled &&
		o.SearchEnabled == other.SearchEnabled
}

// Descriptor is one physical index field.
type Descriptor struct {
	Name    string
	Type    field.Type
	Options Options
}

// Equal compares descriptors structurally.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.Name == other.Name && d.Type == other.Type && d.Options.Equal(other.Options)
}

// Schema is the unordered set of descriptors for one index.
type Schema []Descriptor

// Names returns field names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = d.Name
	}
	return names
}

// Sorted returns a copy ordered by field name.
func (s Schema) Sorted() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Equal compares two schemas ignoring order.
func Equal(a, b Schema) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := a.Sorted(), b.Sorted()
	for i := range as {
		if !as[i].Equal(bs[i]) {
			return false
		}
	}
	return true
}

// Diff returns the sorted names of fields that are missing on either side or differ.
func Diff(a, b Schema) []string {
	byName := make(map[string]Descriptor, len(b))
	for _, d := range b {
		byName[d.Name] = d
	}
	var out []string
	seen := make(map[string]bool, len(a))
	for _, d := range a {
		seen[d.Name] = true
		other, ok := byName[d.Name]
		if !ok || !d.Equal(other) {
			out = append(out, d.Name)
		}
	}
	for _, d := range b {
		if !seen[d.Name] {
			out = append(out, d.Name)
		}
	}
	sort.Strings(out)
	return out
}

// ValidateFieldName checks CloudSearch index field naming rules.
func ValidateFieldName(name string) error {
	if !fieldNameRegex.MatchString(name) {
		return fmt.Errorf("%w: field name %q must match %s",
			domain.ErrInvalidFieldConfiguration, name, fieldNameRegex.String())
	}
	return nil
}

// Build derives the ideal schema from field declarations.
// The three synthetic fields are appended last.
func Build(decls []field.Declaration) (Schema, error) {
	out := make(Schema, 0, len(decls)+3)
	seen := make(map[string]bool, len(decls))

	for _, decl := range decls {
		d, err := describe(decl)
		if err != nil {
			return nil, err
		}
		if seen[d.Name] || isSynthetic(d.Name) {
			return nil, fmt.Errorf("%w: duplicate field name %q", domain.ErrInvalidFieldConfiguration, d.Name)
		}
		seen[d.Name] = true
		out = append(out, d)
	}

	for _, name := range []string{FieldRecordID, FieldRecordType, FieldDocumentID} {
		out = append(out, Descriptor{
			Name:    name,
			Type:    field.TypeLiteral,
			Options: Options{ResultEnabled: true},
		})
	}
	return out, nil
}

// TruncatedDefaults names multi-valued fields whose defaults lose elements in the schema.
func TruncatedDefaults(decls []field.Declaration) []string {
	var out []string
	for _, decl := range decls {
		if _, _, truncated := decl.DefaultString(); truncated {
			out = append(out, decl.Name)
		}
	}
	return out
}

func describe(decl field.Declaration) (Descriptor, error) {
	ft, err := field.MapType(decl.Kind)
	if err != nil {
		return Descriptor{}, fmt.Errorf("field %q: %w", decl.Name, err)
	}
	if decl.Stored && decl.Faceted {
		return Descriptor{}, fmt.Errorf("%w: field %q must be either faceted or stored, not both",
			domain.ErrInvalidFieldConfiguration, decl.Name)
	}
	if err := ValidateFieldName(decl.Name); err != nil {
		return Descriptor{}, err
	}

	var opts Options
	if v, ok, _ := decl.DefaultString(); ok {
		opts.DefaultValue = &v
	}
	switch ft {
	case field.TypeText:
		opts.FacetEnabled = decl.Faceted
		opts.ResultEnabled = decl.Stored
	case field.TypeLiteral:
		opts.FacetEnabled = decl.Faceted
		opts.ResultEnabled = decl.Stored
		opts.SearchEnabled = decl.Indexed
	case field.TypeUint:
		// default only
	}

	return Descriptor{Name: decl.Name, Type: ft, Options: opts}, nil
}

func isSynthetic(name string) bool {
	return name == FieldRecordType || name == FieldRecordID || name == FieldDocumentID
}
