// Package version reports the build stamped into the kiln binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Commit and BuildTime are set via ldflags. When unset, the VCS stamp the Go
// toolchain embeds is used instead.
var (
	Commit    = "unknown"
	BuildTime = "unknown"
)

const unknown = "unknown"

// String returns the version line shown by kiln --version.
func String() string {
	commit, built := stamp()
	return fmt.Sprintf("kiln dev (commit: %s, built: %s)", abbrev(commit), built)
}

func stamp() (commit, built string) {
	commit, built = Commit, BuildTime
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, built
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == unknown:
			commit = s.Value
		case s.Key == "vcs.time" && built == unknown:
			built = s.Value
		}
	}
	return commit, built
}

func abbrev(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
