// Package version carries build-time details for the mapy binary
package version

import "fmt"

var (
	// Version is the mapy version string, overridden at build time via ldflags
	Version = "0.1.0"
	// GitCommit is set at build time
	GitCommit = "n/a"
)

// Summary prints a summary of build info
func Summary() string {
	return fmt.Sprintf("version:\t%s\ngit commit:\t%s", Version, GitCommit)
}
