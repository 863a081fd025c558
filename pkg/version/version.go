// Package version holds build metadata injected with -ldflags.
package version

import (
	"strconv"
	"strings"
)

var (
	// Version is the semver or git-describe version (set at build time)
	Version = "0.0.0"

	// GitCommit is the git commit hash (set at build time)
	GitCommit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// String returns the version with its commit, e.g. "1.2.3 (abc1234)"
func String() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return Version
	}
	return Version + " (" + GitCommit + ")"
}

// VersionInfo contains structured version information
type VersionInfo struct {
	Version   string
	Major     int
	Minor     int
	Patch     int
	GitCommit string
	BuildDate string
}

// Info splits Version into numeric parts. Pre-release and git-describe
// suffixes ("1.2.3-7-gabc1234") are ignored; unparsable parts are 0.
func Info() VersionInfo {
	major, minor, patch := semver(Version)
	return VersionInfo{
		Version:   Version,
		Major:     major,
		Minor:     minor,
		Patch:     patch,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	}
}

func semver(v string) (major, minor, patch int) {
	v = strings.TrimPrefix(v, "v")
	v, _, _ = strings.Cut(v, "+")
	v, _, _ = strings.Cut(v, "-")

	var nums [3]int
	for i, part := range strings.SplitN(v, ".", 3) {
		nums[i], _ = strconv.Atoi(part)
	}
	return nums[0], nums[1], nums[2]
}
