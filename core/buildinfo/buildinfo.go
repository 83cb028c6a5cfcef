// Package buildinfo identifies the running binary in the startup log line.
package buildinfo

import "runtime/debug"

// Set with -ldflags "-X github.com/m3rciful/squonkradio/core/buildinfo.Version=v0.3.0"
// and likewise Commit and Date. Unset values fall back to the VCS stamp the
// go tool embeds.
var (
	Version string
	Commit  string
	Date    string
)

// Info describes a build.
type Info struct {
	Version string
	Commit  string
	Date    string
}

// Read returns the linker values, completed from the embedded build info.
func Read() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = fill(info, bi)
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "local"
	}
	return info
}

func fill(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "":
			info.Commit = s.Value
			if len(info.Commit) > 7 {
				info.Commit = info.Commit[:7]
			}
		case s.Key == "vcs.time" && info.Date == "":
			info.Date = s.Value
		}
	}
	return info
}
