package cloudsearch

// Op constants map to CloudSearch API action names for error context.
const (
	OpDescribeDomains        = "DescribeDomains"
	OpListDomainNames        = "ListDomainNames"
	OpCreateDomain           = "CreateDomain"
	OpDeleteDomain           = "DeleteDomain"
	OpIndexDocuments         = "IndexDocuments"
	OpDescribeIndexFields    = "DescribeIndexFields"
	OpDefineIndexField       = "DefineIndexField"
	OpDescribeAccessPolicies = "DescribeServiceAccessPolicies"
	OpUpdateAccessPolicies   = "UpdateServiceAccessPolicies"
	OpUploadDocuments        = "UploadDocuments"
	OpSearch                 = "Search"
)

// Error wraps an underlying error with the action and domain for diagnostics.
type Error struct {
	Op     string
	Domain string
	Err    error
}

func (e *Error) Error() string {
	if e.Domain == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Domain + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
