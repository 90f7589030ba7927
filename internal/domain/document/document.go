package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/schema"
)

// MaxBatchBytes is the CloudSearch upload limit for one document batch.
const MaxBatchBytes = 5 * 1024 * 1024

// idSeparator replaces dots in record identifiers; CloudSearch ids cannot contain them.
const idSeparator = "__"

// Document is a flattened record: field name to string, number or list value.
type Document map[string]any

// ID returns the unescaped document id.
func (d Document) ID() string {
	s, _ := d[schema.FieldDocumentID].(string)
	return s
}

// EscapeID makes a record identifier safe for use as a document id.
func EscapeID(id string) string {
	return strings.ReplaceAll(id, ".", idSeparator)
}

// UnescapeID reverses EscapeID.
func UnescapeID(id string) string {
	return strings.ReplaceAll(id, idSeparator, ".")
}

// Version returns the document version for t: wall-clock seconds.
// Two updates of one record within a second share a version.
func Version(t time.Time) int64 {
	return t.Unix()
}

// OpType is a batch operation kind.
type OpType string

// Batch operation kinds.
const (
	OpAdd    OpType = "add"
	OpDelete OpType = "delete"
)

// Op is one entry of a search data format batch.
type Op struct {
	Type    OpType   `json:"type"`
	ID      string   `json:"id"`
	Version int64    `json:"version"`
	Lang    string   `json:"lang,omitempty"`
	Fields  Document `json:"fields,omitempty"`
}

// NewAdd stages a prepared document. The id field is escaped in place.
func NewAdd(doc Document, version int64) (Op, error) {
	id := doc.ID()
	if id == "" {
		return Op{}, fmt.Errorf("document has no %q field", schema.FieldDocumentID)
	}
	escaped := EscapeID(id)
	doc[schema.FieldDocumentID] = escaped
	return Op{Type: OpAdd, ID: escaped, Version: version, Lang: "en", Fields: doc}, nil
}

// NewDelete stages removal of the document for a record identifier.
func NewDelete(identifier string, version int64) Op {
	return Op{Type: OpDelete, ID: EscapeID(identifier), Version: version}
}

// EncodeBatches serializes ops as JSON arrays no larger than maxBytes each.
// maxBytes <= 0 disables splitting.
func EncodeBatches(ops []Op, maxBytes int) ([][]byte, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	var (
		batches [][]byte
		buf     bytes.Buffer
		count   int
	)
	flush := func() {
		buf.WriteByte(']')
		batches = append(batches, append([]byte(nil), buf.Bytes()...))
		buf.Reset()
		count = 0
	}

	for i := range ops {
		raw, err := json.Marshal(ops[i])
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", ops[i].Type, ops[i].ID, err)
		}
		if maxBytes > 0 && len(raw)+2 > maxBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", domain.ErrDocumentTooLarge, ops[i].ID, len(raw), maxBytes)
		}
		// +2 for the separator and the closing bracket.
		if maxBytes > 0 && count > 0 && buf.Len()+len(raw)+2 > maxBytes {
			flush()
		}
		if count == 0 {
			buf.WriteByte('[')
		} else {
			buf.WriteByte(',')
		}
		buf.Write(raw)
		count++
	}
	flush()
	return batches, nil
}
