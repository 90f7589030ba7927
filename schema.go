package csindex

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/document"
	"github.com/kailas-cloud/csindex/internal/domain/field"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
)

const tagKey = "csindex"

// schemaMeta holds parsed struct tag metadata, cached per TypedIndex.
//
// Tag grammar: `csindex:"name,option,..."`. Options: pk, text, literal,
// uint, stored, faceted, multi, noindex, default=<value>. default must come
// last; multi-valued defaults are separated by "|". An empty name uses the
// lower-cased Go field name.
type schemaMeta struct {
	typ    reflect.Type
	pkIdx  int
	fields []fieldMapping
}

type fieldMapping struct {
	structIdx int
	decl      field.Declaration
}

// parseSchema reflects on T and extracts csindex struct tag metadata.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("csindex: type parameter is an interface")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("csindex: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, pkIdx: -1}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}

	if meta.pkIdx == -1 {
		return nil, fmt.Errorf("csindex: no field with `csindex:\",pk\"` tag in %s", t)
	}
	if _, err := schema.Build(meta.declarations()); err != nil {
		return nil, fmt.Errorf("csindex: %s: %w", t, err)
	}
	return meta, nil
}

// applyTag processes a single struct field's csindex tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	var def *string
	if pos := strings.Index(tag, ",default="); pos >= 0 {
		v := tag[pos+len(",default="):]
		def = &v
		tag = tag[:pos]
	}

	parts := strings.Split(tag, ",")
	decl := field.Declaration{Name: parts[0], Indexed: true}
	if decl.Name == "" {
		decl.Name = strings.ToLower(f.Name)
	}

	for _, opt := range parts[1:] {
		switch opt {
		case "pk":
			if meta.pkIdx != -1 {
				return fmt.Errorf("csindex: duplicate pk tag on field %s", f.Name)
			}
			if !isPKType(f.Type) {
				return fmt.Errorf("csindex: pk field %s must be a string or integer", f.Name)
			}
			meta.pkIdx = idx
			return nil
		case "text", "literal", "uint":
			decl.Kind = field.Kind(opt)
		case "stored":
			decl.Stored = true
		case "faceted":
			decl.Faceted = true
		case "multi":
			decl.MultiValued = true
		case "noindex":
			decl.Indexed = false
		default:
			return fmt.Errorf("csindex: unknown option %q on field %s", opt, f.Name)
		}
	}

	if decl.Kind == "" {
		kind, multi, ok := inferKind(f.Type)
		if !ok {
			return fmt.Errorf("csindex: field %s: %w: cannot infer kind of %s",
				f.Name, domain.ErrUnsupportedFieldKind, f.Type)
		}
		decl.Kind = kind
		decl.MultiValued = decl.MultiValued || multi
	}
	if f.Type.Kind() == reflect.Slice {
		decl.MultiValued = true
	}
	if decl.MultiValued && f.Type.Kind() != reflect.Slice {
		return fmt.Errorf("csindex: multi-valued field %s must be a slice", f.Name)
	}
	if def != nil {
		if decl.MultiValued {
			decl.Default = strings.Split(*def, "|")
		} else {
			decl.Default = *def
		}
	}

	meta.fields = append(meta.fields, fieldMapping{structIdx: idx, decl: decl})
	return nil
}

func isPKType(t reflect.Type) bool {
	return t.Kind() == reflect.String || isInt(t.Kind()) || isUint(t.Kind())
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// inferKind maps Go types to field kinds: strings are text, string slices
// are multi-valued literals, integers are uint.
func inferKind(t reflect.Type) (field.Kind, bool, bool) {
	multi := false
	if t.Kind() == reflect.Slice {
		multi = true
		t = t.Elem()
	}
	switch {
	case t.Kind() == reflect.String && multi:
		return field.KindLiteral, true, true
	case t.Kind() == reflect.String:
		return field.KindText, false, true
	case isInt(t.Kind()) || isUint(t.Kind()):
		return field.KindUint, multi, true
	}
	return "", false, false
}

func (m *schemaMeta) declarations() []field.Declaration {
	out := make([]field.Declaration, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.decl
	}
	return out
}

// value returns the struct value of item, or false when item is not a T or *T.
func (m *schemaMeta) value(item any) (reflect.Value, bool) {
	v := reflect.ValueOf(item)
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Type() != m.typ {
		return reflect.Value{}, false
	}
	return v, true
}

func (m *schemaMeta) pk(v reflect.Value) string {
	return fmt.Sprint(v.Field(m.pkIdx).Interface())
}

// toDocument flattens a struct into declared field values. Zero values
// take the field default when one is declared.
func (m *schemaMeta) toDocument(v reflect.Value) (document.Document, error) {
	doc := make(document.Document, len(m.fields))
	for _, f := range m.fields {
		fv := v.Field(f.structIdx)
		if fv.IsZero() && f.decl.Default != nil {
			d, err := defaultValue(f.decl)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.decl.Name, err)
			}
			doc[f.decl.Name] = d
			continue
		}

		if !f.decl.MultiValued {
			val, err := scalarValue(f.decl, fv)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.decl.Name, err)
			}
			doc[f.decl.Name] = val
			continue
		}

		if fv.Len() == 0 {
			continue
		}
		vals := make([]any, fv.Len())
		for i := range fv.Len() {
			val, err := scalarValue(f.decl, fv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.decl.Name, err)
			}
			vals[i] = val
		}
		doc[f.decl.Name] = vals
	}
	return doc, nil
}

func defaultValue(decl field.Declaration) (any, error) {
	if !decl.MultiValued {
		return scalarValue(decl, reflect.ValueOf(decl.Default))
	}
	raw, _ := decl.Default.([]string)
	vals := make([]any, len(raw))
	for i, r := range raw {
		val, err := scalarValue(decl, reflect.ValueOf(r))
		if err != nil {
			return nil, err
		}
		vals[i] = val
	}
	return vals, nil
}

func scalarValue(decl field.Declaration, v reflect.Value) (any, error) {
	if decl.Kind != field.KindUint {
		if v.Kind() == reflect.String {
			return v.String(), nil
		}
		return fmt.Sprint(v.Interface()), nil
	}
	switch {
	case isUint(v.Kind()):
		return v.Uint(), nil
	case isInt(v.Kind()):
		if v.Int() < 0 {
			return nil, fmt.Errorf("%w: %d is negative", domain.ErrInvalidFieldValue, v.Int())
		}
		return uint64(v.Int()), nil
	}
	return field.DecodeUint(fmt.Sprint(v.Interface()))
}

// fromResult rebuilds a T from a search result.
func (m *schemaMeta) fromResult(r Result) (reflect.Value, error) {
	v := reflect.New(m.typ).Elem()
	if err := assign(v.Field(m.pkIdx), r.PK); err != nil {
		return reflect.Value{}, fmt.Errorf("pk: %w", err)
	}
	for _, f := range m.fields {
		raw, ok := r.Fields[f.decl.Name]
		if !ok {
			continue
		}
		if err := assign(v.Field(f.structIdx), raw); err != nil {
			return reflect.Value{}, fmt.Errorf("field %q: %w", f.decl.Name, err)
		}
	}
	return v, nil
}

// assign stores a decoded result value into a struct field.
func assign(dst reflect.Value, raw any) error {
	if dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() != reflect.Uint8 {
		items, ok := raw.([]any)
		if !ok {
			items = []any{raw}
		}
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assign(out.Index(i), item); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	}

	switch val := raw.(type) {
	case uint64:
		switch {
		case isUint(dst.Kind()):
			dst.SetUint(val)
		case isInt(dst.Kind()):
			dst.SetInt(int64(val))
		case dst.Kind() == reflect.String:
			dst.SetString(strconv.FormatUint(val, 10))
		default:
			return fmt.Errorf("cannot store %d in %s", val, dst.Type())
		}
	case string:
		switch {
		case dst.Kind() == reflect.String:
			dst.SetString(val)
		case isUint(dst.Kind()):
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", domain.ErrInvalidFieldValue, val)
			}
			dst.SetUint(n)
		case isInt(dst.Kind()):
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", domain.ErrInvalidFieldValue, val)
			}
			dst.SetInt(n)
		default:
			return fmt.Errorf("cannot store %q in %s", val, dst.Type())
		}
	default:
		return fmt.Errorf("unexpected value %T", raw)
	}
	return nil
}
