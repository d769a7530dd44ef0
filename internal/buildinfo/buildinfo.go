package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Info holds structured build information for `waypoint version --json`.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// GetInfo returns the current build information. A dev build installed with
// `go install` picks up its module version when ldflags left Version unset.
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
	}
	if info.Version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	return info
}

// String returns a human-readable version string, e.g.
// "waypoint v1.2.0 (commit: a1b2c3d, built: 2026-02-17T10:00:00Z, go1.24.1)".
func (i Info) String() string {
	s := fmt.Sprintf("waypoint v%s (commit: %s, built: %s", i.Version, i.Commit, i.Date)
	if i.GoVersion != "" {
		s += ", " + i.GoVersion
	}
	return s + ")"
}
