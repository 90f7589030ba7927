// Package version carries build metadata. Release builds set it with
// -ldflags "-X github.com/kailas-cloud/csindex/internal/version.Version=v1.2.3".
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the metadata as "version (commit, date)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}

// IsRelease reports whether the binary was built with a version stamp.
func IsRelease() bool { return Version != "dev" }
