// Package version carries build metadata stamped in by the linker:
//
//	go build -ldflags "-X github.com/viewtl/viewlink/internal/version.Version=v0.3.0 \
//	                   -X github.com/viewtl/viewlink/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import "runtime"

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the short git hash the binary was built from.
	Commit = "unknown"
)

// String returns "Version (Commit, goX.Y)".
func String() string {
	return Version + " (" + Commit + ", " + runtime.Version() + ")"
}

// UserAgent identifies viewlink to the device on REST calls and socket dials.
func UserAgent() string {
	return "viewlink/" + Version
}
