package health

import "context"

// RemoteLister probes the CloudSearch configuration API.
type RemoteLister interface {
	ListDomainNames(ctx context.Context) ([]string, error)
}

// StorePinger checks record store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}
