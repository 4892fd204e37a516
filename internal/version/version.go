// Package version reports the mailnotify build version.
package version

import "runtime/debug"

// Version is overridden at build time with -ldflags "-X .../version.Version=1.2.3".
var Version = "development"

// Commit is the git commit hash, overridable the same way.
var Commit = "unknown"

var readBuildInfo = debug.ReadBuildInfo

// String returns the version with the commit appended when known. Without an ldflags
// commit the VCS revision stamped by the go tool is used, shortened to 7 characters.
func String() string {
	commit := Commit
	if commit == "unknown" {
		commit = vcsRevision()
	}
	if commit == "" || commit == "unknown" {
		return Version
	}
	return Version + "+" + commit
}

// UserAgent identifies mailnotify to native hosts.
func UserAgent() string {
	return "mailnotify/" + String()
}

func vcsRevision() string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return ""
}
