package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/domain"
)

// DefaultPrefix is the domain name prefix when none is configured.
const DefaultPrefix = "haystack"

// CloudSearch domain names: 3-28 chars, lowercase letter first, then [a-z0-9-].
var domainNameRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{2,27}$`)

// Validate checks a domain name against CloudSearch naming rules.
func Validate(name string) error {
	if !domainNameRegex.MatchString(name) {
		return fmt.Errorf("%w: domain name %q must match %s",
			domain.ErrConfiguration, name, domainNameRegex.String())
	}
	return nil
}

// Derive computes the domain name of an index without caching.
// An explicit override yields {prefix}-{override}; otherwise
// {prefix}-{namespace}-{class} lower-cased, with underscores trimmed from the class.
func Derive(prefix string, idx Index) string {
	if override := idx.DomainName(); override != "" {
		return prefix + "-" + override
	}
	class := strings.Trim(idx.ClassName(), "_")
	return strings.ToLower(prefix + "-" + idx.Namespace() + "-" + class)
}

// Namer maps indexes to domain names. The first computed name of an index is
// kept for the namer's lifetime; later override changes are ignored.
type Namer struct {
	prefix string
	strict bool
	logger *zap.Logger
	cache  *xsync.MapOf[string, string]
}

// New creates a namer. Invalid names are logged, and rejected when strict is set.
func New(prefix string, strict bool, logger *zap.Logger) *Namer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Namer{
		prefix: prefix,
		strict: strict,
		logger: logger,
		cache:  xsync.NewMapOf[string, string](),
	}
}

// Prefix returns the configured domain prefix.
func (n *Namer) Prefix() string { return n.prefix }

// NameFor returns the memoized domain name of an index.
func (n *Namer) NameFor(idx Index) (string, error) {
	name, _ := n.cache.LoadOrCompute(idx.Name(), func() string {
		return Derive(n.prefix, idx)
	})
	if err := Validate(name); err != nil {
		if n.strict {
			return "", fmt.Errorf("index %s: %w", idx.Name(), err)
		}
		n.logger.Warn("domain name violates CloudSearch constraints",
			zap.String("index", idx.Name()),
			zap.String("domain", name),
		)
	}
	return name, nil
}

// Owns reports whether a domain name carries this namer's prefix.
func (n *Namer) Owns(domainName string) bool {
	return strings.HasPrefix(domainName, n.prefix+"-")
}
