// Package version holds the build version stamped into remote metadata.
package version

// Version is overridden at build time via
// -ldflags "-X github.com/gistwatch/gistwatch/internal/version.Version=..."
var Version = "0.3.0"
