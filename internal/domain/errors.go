package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals missing or invalid backend settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnsupportedFieldKind signals a field kind the remote schema cannot express.
	ErrUnsupportedFieldKind = errors.New("unsupported field kind")
	// ErrInvalidFieldConfiguration signals an illegal field flag combination or name.
	ErrInvalidFieldConfiguration = errors.New("invalid field configuration")
	// ErrSchemaReconciliation signals a remote failure while converging a domain schema.
	ErrSchemaReconciliation = errors.New("schema reconciliation failed")
	// ErrPreparation signals a record that could not be flattened into a document.
	ErrPreparation = errors.New("record preparation failed")
	// ErrPartialPreparation signals that strict mode saw fewer prepared documents than records.
	ErrPartialPreparation = errors.New("partial preparation failure")
	// ErrDomainNotFound signals a missing search domain.
	ErrDomainNotFound = errors.New("domain not found")
	// ErrRemoteTransientState signals a domain that cannot serve yet; callers may retry.
	ErrRemoteTransientState = errors.New("domain in transient state")
	// ErrDomainProcessing signals a domain applying configuration changes.
	ErrDomainProcessing = errors.New("domain processing")
	// ErrNeedsIndexing signals a domain whose index must be rebuilt before serving.
	ErrNeedsIndexing = errors.New("domain needs indexing")
	// ErrOperationTimedOut signals that a bounded poll hit its ceiling. Remote state is unknown.
	ErrOperationTimedOut = errors.New("operation timed out")
	// ErrIndexNotRegistered signals an index, record type or record outside the registry scope.
	ErrIndexNotRegistered = errors.New("index not registered")
	// ErrInvalidFieldValue signals a value the field decoder rejects.
	ErrInvalidFieldValue = errors.New("invalid field value")
	// ErrDocumentTooLarge signals a single document above the batch size limit.
	ErrDocumentTooLarge = errors.New("document too large")
	// ErrRecordNotFound signals a record missing from the record store.
	ErrRecordNotFound = errors.New("record not found")
)

// DomainError attaches the remote domain and the failed step to an error.
type DomainError struct {
	Op     string
	Domain string
	Err    error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Domain, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewSchemaError wraps a remote error raised while reconciling a domain.
func NewSchemaError(op, domainName string, err error) error {
	return &DomainError{Op: op, Domain: domainName, Err: errors.Join(ErrSchemaReconciliation, err)}
}

// PreparationError reports a record that failed FullPrepare.
type PreparationError struct {
	Index  string
	Record string
	Err    error
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("%s: index %s, record %s: %v", ErrPreparation.Error(), e.Index, e.Record, e.Err)
}

func (e *PreparationError) Unwrap() []error { return []error{ErrPreparation, e.Err} }

// TransientStateError reports a domain that is processing or needs indexing.
type TransientStateError struct {
	Domain string
	State  error // ErrDomainProcessing or ErrNeedsIndexing
}

func (e *TransientStateError) Error() string {
	return fmt.Sprintf("domain %s: %v", e.Domain, e.State)
}

func (e *TransientStateError) Unwrap() []error { return []error{ErrRemoteTransientState, e.State} }

// IsTransient reports whether err is a retryable remote state error.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteTransientState)
}
