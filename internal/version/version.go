// Package version carries the build version shared by the server and CLI.
package version

import "golang.org/x/mod/semver"

// Version is the semantic version of this build. Overridable at link time
// with -ldflags "-X github.com/untoldecay/grns/internal/version.Version=...".
var Version = "0.3.0"

// Compatible reports whether a client at version a can talk to a server at
// version b. Major versions must match; anything unparsable is accepted.
func Compatible(a, b string) bool {
	va, vb := canonical(a), canonical(b)
	if va == "" || vb == "" {
		return true
	}
	return semver.Major(va) == semver.Major(vb)
}

func canonical(v string) string {
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
