package naming

// Index is the part of a registered index the namer reads.
type Index interface {
	Name() string
	Namespace() string
	ClassName() string
	DomainName() string
}
