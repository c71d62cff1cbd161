package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

//nolint:gochecknoglobals // Overridden through -ldflags.
var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time.
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = unknown
)

// Info is the resolved build metadata.
type Info struct {
	// Version is the semantic version.
	Version string
	// Commit is the git revision, possibly read from the build info.
	Commit string
	// BuildTime is the build or commit timestamp.
	BuildTime string
	// GoVersion is the toolchain the binary was built with.
	GoVersion string
	// Platform is GOOS/GOARCH.
	Platform string
}

// Get resolves the build metadata.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "none" && setting.Value != "" {
				info.Commit = shortRevision(setting.Value)
			}
		case "vcs.time":
			if info.BuildTime == unknown && setting.Value != "" {
				info.BuildTime = setting.Value
			}
		}
	}

	return info
}

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string.
func Full() string {
	info := Get()

	return fmt.Sprintf("edge-telemetry %s (commit: %s, built at: %s, %s %s)",
		info.Version, info.Commit, info.BuildTime, info.GoVersion, info.Platform)
}

// KV returns the metadata as logger key-value pairs.
func KV() []any {
	info := Get()

	return []any{
		"version", info.Version,
		"commit", info.Commit,
		"go_version", info.GoVersion,
	}
}

func shortRevision(rev string) string {
	const length = 7

	if len(rev) > length {
		return rev[:length]
	}

	return rev
}
