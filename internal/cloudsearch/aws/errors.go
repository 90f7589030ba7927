package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
	"github.com/kailas-cloud/csindex/internal/domain"
)

// wrapError attaches the operation and domain to err and joins the domain
// sentinel matching the service error code, if any.
func wrapError(op, domainName string, err error) error {
	if sentinel := classify(err); sentinel != nil {
		err = errors.Join(sentinel, err)
	}
	return &cloudsearch.Error{Op: op, Domain: domainName, Err: err}
}

func classify(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	switch apiErr.ErrorCode() {
	case "ResourceNotFound", "ResourceNotFoundException":
		return domain.ErrDomainNotFound
	case "RequestEntityTooLarge":
		return domain.ErrDocumentTooLarge
	case "DocumentServiceException":
		if strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "too large") {
			return domain.ErrDocumentTooLarge
		}
	}
	return nil
}
