// Package version exposes the build version string for the sigint-report
// binary. The value is overridden at build time via
// -ldflags "-X github.com/armslength-data/sigint.report/internal/version.Version=...".
package version

// Version is the semantic version of this build.
var Version = "0.3.0-dev"
