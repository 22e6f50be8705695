// Package version carries docquery build metadata, set with
// -ldflags "-X github.com/kailas-cloud/docquery/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the source revision.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the metadata on one line.
func String() string {
	return fmt.Sprintf("docquery %s (commit %s, built %s)", Version, Commit, Date)
}
