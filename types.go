package csindex

import (
	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/field"
	"github.com/kailas-cloud/csindex/internal/domain/search/request"
	"github.com/kailas-cloud/csindex/internal/domain/search/result"
	"github.com/kailas-cloud/csindex/internal/registry"
	lifecycleuc "github.com/kailas-cloud/csindex/internal/usecase/lifecycle"
	pipelineuc "github.com/kailas-cloud/csindex/internal/usecase/pipeline"
)

// Record identity.
type (
	// RecordType identifies a kind of record as namespace + model.
	RecordType = domain.RecordType
	// RecordRef points at one record.
	RecordRef = domain.RecordRef
)

// Index declarations.
type (
	// Index is a logical search index over one record type.
	Index = registry.Index
	// Definition declares a map-record index.
	Definition = registry.Definition
	// FieldSource binds a declared field to a record attribute.
	FieldSource = registry.FieldSource
	// FieldDeclaration is one typed field.
	FieldDeclaration = field.Declaration
	// FieldKind is a field's value kind.
	FieldKind = field.Kind
	// MapRecord is a schemaless record.
	MapRecord = registry.MapRecord
)

// Field kinds.
const (
	KindText    = field.KindText
	KindLiteral = field.KindLiteral
	KindUint    = field.KindUint
)

// Search types.
type (
	// SearchOptions tune a search.
	SearchOptions = request.Options
	// Parser selects the query language.
	Parser = request.Parser
	// Result is one reconstructed hit.
	Result = result.Result
	// Response is a merged search response.
	Response = result.Response
	// FacetCount is one facet bucket.
	FacetCount = result.FacetCount
)

// Query parsers.
const (
	ParserSimple     = request.ParserSimple
	ParserStructured = request.ParserStructured
	ParserLucene     = request.ParserLucene
	ParserDismax     = request.ParserDismax
)

// Lifecycle and pipeline types.
type (
	// Selector picks domains to clear.
	Selector = lifecycleuc.Selector
	// ClearOptions tune Clear.
	ClearOptions = lifecycleuc.ClearOptions
	// AccessResult reports which grants changed a policy.
	AccessResult = lifecycleuc.AccessResult
	// Report summarizes an update.
	Report = pipelineuc.Report
)

// Errors returned by the client. Match them with errors.Is.
var (
	ErrConfiguration             = domain.ErrConfiguration
	ErrUnsupportedFieldKind      = domain.ErrUnsupportedFieldKind
	ErrInvalidFieldConfiguration = domain.ErrInvalidFieldConfiguration
	ErrSchemaReconciliation      = domain.ErrSchemaReconciliation
	ErrPreparation               = domain.ErrPreparation
	ErrPartialPreparation        = domain.ErrPartialPreparation
	ErrDomainNotFound            = domain.ErrDomainNotFound
	ErrRemoteTransientState      = domain.ErrRemoteTransientState
	ErrOperationTimedOut         = domain.ErrOperationTimedOut
	ErrIndexNotRegistered        = domain.ErrIndexNotRegistered
	ErrInvalidFieldValue         = domain.ErrInvalidFieldValue
	ErrDocumentTooLarge          = domain.ErrDocumentTooLarge
)

// IsTransient reports whether err means the domain is processing or waiting
// for an index rebuild. Such calls can be retried later.
func IsTransient(err error) bool { return domain.IsTransient(err) }
