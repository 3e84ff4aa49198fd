// Package version holds build-time version information.
package version

// Default build-time variable.
// These values are overridden via ldflags
var (
	Version   = "0.0.0+unknown"
	GitCommit = "unknown-commit-sha"
)

// String returns the version line printed by --version.
func String() string {
	return Version + " (" + GitCommit + ")"
}
