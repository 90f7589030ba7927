package field

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/kailas-cloud/csindex/internal/domain"
)

// Kind is the logical type of a declared field.
// Faceted and multi-valued variants are flags on Declaration, not kinds.
type Kind string

// Declared field kinds.
const (
	KindText    Kind = "text"
	KindLiteral Kind = "literal"
	KindUint    Kind = "uint"
)

// IsValid checks if the kind is one the remote schema supports.
func (k Kind) IsValid() bool {
	return k == KindText || k == KindLiteral || k == KindUint
}

// Type is the physical field type of a CloudSearch index field.
type Type string

// Physical field types.
const (
	TypeText    Type = "text"
	TypeLiteral Type = "literal"
	TypeUint    Type = "uint"
)

// MapType maps a declared kind to its physical type.
func MapType(k Kind) (Type, error) {
	switch k {
	case KindText:
		return TypeText, nil
	case KindLiteral:
		return TypeLiteral, nil
	case KindUint:
		return TypeUint, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFieldKind, k)
	}
}

// Decoder converts a raw returned value into a typed value.
type Decoder func(raw string) (any, error)

// Declaration is a typed field as supplied by an index definition.
type Declaration struct {
	Name        string
	Kind        Kind
	Stored      bool
	Faceted     bool
	Indexed     bool
	MultiValued bool
	// Default is nil when absent, a scalar, or a slice for multi-valued fields.
	Default any
	// Decoder overrides the kind's built-in decoder.
	Decoder Decoder
}

// DefaultString renders the default value. For slices only the first element is used
// and truncated reports whether more were dropped.
func (d Declaration) DefaultString() (value string, ok, truncated bool) {
	if d.Default == nil {
		return "", false, false
	}
	v := reflect.ValueOf(d.Default)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		if v.Len() == 0 {
			return "", false, false
		}
		return fmt.Sprint(v.Index(0).Interface()), true, v.Len() > 1
	}
	return fmt.Sprint(d.Default), true, false
}

// HasDecoder reports whether returned values of this field are converted.
func (d Declaration) HasDecoder() bool {
	return d.Decoder != nil || d.Kind == KindUint
}

// Decode converts a raw returned value. Fields without a decoder return raw unchanged.
func (d Declaration) Decode(raw string) (any, error) {
	if d.Decoder != nil {
		return d.Decoder(raw)
	}
	if d.Kind == KindUint {
		return DecodeUint(raw)
	}
	return raw, nil
}

// DecodeUint parses an unsigned integer, rejecting negatives.
func DecodeUint(raw string) (any, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidFieldValue, raw)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d is negative", domain.ErrInvalidFieldValue, n)
	}
	return uint64(n), nil
}
