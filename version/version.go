// Package version reports build information for seekr binaries.
//
// Values are injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/acksell/seekr/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

// These variables are set via -ldflags at build time.
var (
	// Version is the semantic version.
	Version = "0.1.0-dev"

	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitBranch is the branch the build was made from.
	GitBranch = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// BuildInfo is the JSON form served at /api/v1/version.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GitBranch string `json:"git_branch"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Info returns a one-line version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s@%s, %s)", Version, GitCommit, GitBranch, BuildTime)
}

// Full returns detailed version information including the Go version.
func Full() string {
	b := Get()
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s", Info(), b.GoVersion, b.Platform)
}
