package csindex

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/cloudsearch"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	accessKeyID       string
	secretAccessKey   string
	region            string
	endpoint          string
	domainPrefix      string
	ipAddress         string
	maxSpinlock       time.Duration
	spinlockInterval  time.Duration
	prepareSilently   bool
	strictDomainNames bool
	maxBatchBytes     int
	requestsPerSecond float64
	parallelSearch    bool
	logger            *zap.Logger

	// backend replaces the AWS client; tests only.
	backend cloudsearch.Client
}

// WithCredentials sets the static AWS access key pair. Required.
func WithCredentials(accessKeyID, secretAccessKey string) Option {
	return func(c *clientConfig) {
		c.accessKeyID = accessKeyID
		c.secretAccessKey = secretAccessKey
	}
}

// WithRegion sets the CloudSearch region (default us-east-1).
func WithRegion(region string) Option {
	return func(c *clientConfig) { c.region = region }
}

// WithEndpoint overrides the configuration API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *clientConfig) { c.endpoint = endpoint }
}

// WithDomainPrefix sets the prefix of every derived domain name (default "haystack").
func WithDomainPrefix(prefix string) Option {
	return func(c *clientConfig) { c.domainPrefix = prefix }
}

// WithIPAddress sets the address granted by EnableIndexAccess. Required.
func WithIPAddress(ip string) Option {
	return func(c *clientConfig) { c.ipAddress = ip }
}

// WithMaxSpinlock bounds how long Clear waits for deletions (default one hour).
func WithMaxSpinlock(d time.Duration) Option {
	return func(c *clientConfig) { c.maxSpinlock = d }
}

// WithSpinlockInterval sets the poll interval (default one minute).
func WithSpinlockInterval(d time.Duration) Option {
	return func(c *clientConfig) { c.spinlockInterval = d }
}

// WithPrepareSilently logs preparation failures instead of returning them.
func WithPrepareSilently() Option {
	return func(c *clientConfig) { c.prepareSilently = true }
}

// WithStrictDomainNames rejects indexes whose derived domain name is invalid.
func WithStrictDomainNames() Option {
	return func(c *clientConfig) { c.strictDomainNames = true }
}

// WithMaxBatchBytes caps one upload batch (default 5 MB).
func WithMaxBatchBytes(n int) Option {
	return func(c *clientConfig) { c.maxBatchBytes = n }
}

// WithRequestsPerSecond throttles configuration API calls.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *clientConfig) { c.requestsPerSecond = rps }
}

// WithParallelSearch queries the domains of a multi-index search concurrently.
func WithParallelSearch() Option {
	return func(c *clientConfig) { c.parallelSearch = true }
}

// WithLogger sets the logger (default no-op).
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

func withBackend(b cloudsearch.Client) Option {
	return func(c *clientConfig) { c.backend = b }
}
