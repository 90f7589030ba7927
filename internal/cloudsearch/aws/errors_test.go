package aws

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", &smithy.GenericAPIError{Code: "ResourceNotFound", Message: "domain missing"}, domain.ErrDomainNotFound},
		{"entity too large", &smithy.GenericAPIError{Code: "RequestEntityTooLarge"}, domain.ErrDocumentTooLarge},
		{"document service", &smithy.GenericAPIError{Code: "DocumentServiceException", Message: "Request Too Large"}, domain.ErrDocumentTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError(cloudsearch.OpUploadDocuments, "doc-notes", tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var ce *cloudsearch.Error
			if !errors.As(err, &ce) || ce.Domain != "doc-notes" {
				t.Errorf("missing operation context: %v", err)
			}
		})
	}
}

func TestWrapError_Unclassified(t *testing.T) {
	raw := &smithy.GenericAPIError{Code: "LimitExceeded"}
	err := wrapError(cloudsearch.OpDefineIndexField, "d", raw)
	if errors.Is(err, domain.ErrDomainNotFound) || errors.Is(err, domain.ErrDocumentTooLarge) {
		t.Errorf("unexpected sentinel in %v", err)
	}
	if !errors.Is(err, raw) {
		t.Error("original error should stay reachable")
	}
}
