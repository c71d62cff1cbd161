// Package version reports build metadata of edge-telemetry.
//
// Version, Commit and BuildTime are set through -ldflags. When a binary is
// built without them, Commit and BuildTime fall back to the VCS stamps the Go
// toolchain records in the build info.
package version
