// Package buildinfo carries the version stamped into the postbot binary and
// reported by "postbot --version" and the startup log line.
package buildinfo

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/postbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/postbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/postbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
//
// Unstamped builds report "dev" from commit "local".
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)
