// Package version holds the build identity of the bugminer binary.
package version

import "runtime"

// Set at build time:
// go build -ldflags "-X bugminer/internal/version.Version=1.2.0 -X bugminer/internal/version.Commit=$(git rev-parse HEAD)"
var (
	Version   = "1.0.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with the short commit appended when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line version report printed by "bugminer version".
func Full() string {
	return "bugminer version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH
}
