package runtime

import (
	"runtime/debug"
)

const (
	defaultVersion   = "0.0.0-dev"
	defaultCommit    = "none"
	defaultTimestamp = "unknown"
)

// Set at build time through -ldflags "-X".
var (
	Version   = defaultVersion
	GitCommit = defaultCommit
	Timestamp = defaultTimestamp
)

type Info struct {
	Version   string
	GitCommit string
	Timestamp string
}

// BuildInfo returns the ldflags values, falling back to the module version
// and vcs stamps recorded by the go tool for any value left at its default.
func BuildInfo() Info {
	info := Info{Version: Version, GitCommit: GitCommit, Timestamp: Timestamp}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	return withBuildSettings(info, bi.Main.Version, bi.Settings)
}

func withBuildSettings(info Info, mainVersion string, settings []debug.BuildSetting) Info {
	if info.Version == defaultVersion && mainVersion != "" && mainVersion != "(devel)" {
		info.Version = mainVersion
	}

	var modified, stamped bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == defaultCommit && s.Value != "" {
				info.GitCommit = s.Value
				stamped = true
			}
		case "vcs.time":
			if info.Timestamp == defaultTimestamp && s.Value != "" {
				info.Timestamp = s.Value
			}
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	if modified && stamped {
		info.GitCommit += "-dirty"
	}
	return info
}
