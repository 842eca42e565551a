package authproxy

import (
	"github.com/blang/semver"
)

// Version is the compile-time proxy version. It is parsed (not merely
// printed) at startup so a malformed build-time override is caught
// immediately rather than silently logged verbatim.
const Version = "1.0.0"

// ParsedVersion validates and returns Version. Unlike kr's
// latest_version.go, this never contacts a remote endpoint — there is no
// "latest version" to compare against, only the local build's own
// version string.
func ParsedVersion() (semver.Version, error) {
	return semver.Parse(Version)
}
