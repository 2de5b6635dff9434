package runtime

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithBuildSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.revision", Value: "4f2a9c1e0b7d"},
		{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "false"},
	}

	tests := []struct {
		name        string
		info        Info
		mainVersion string
		settings    []debug.BuildSetting
		want        Info
	}{
		{
			name:        "defaults filled from build info",
			info:        Info{Version: defaultVersion, GitCommit: defaultCommit, Timestamp: defaultTimestamp},
			mainVersion: "v1.2.3",
			settings:    settings,
			want:        Info{Version: "v1.2.3", GitCommit: "4f2a9c1e0b7d", Timestamp: "2026-10-01T12:00:00Z"},
		},
		{
			name:        "ldflags win",
			info:        Info{Version: "1.0.0", GitCommit: "abc", Timestamp: "yesterday"},
			mainVersion: "v1.2.3",
			settings:    settings,
			want:        Info{Version: "1.0.0", GitCommit: "abc", Timestamp: "yesterday"},
		},
		{
			name:        "devel main version ignored",
			info:        Info{Version: defaultVersion, GitCommit: defaultCommit, Timestamp: defaultTimestamp},
			mainVersion: "(devel)",
			want:        Info{Version: defaultVersion, GitCommit: defaultCommit, Timestamp: defaultTimestamp},
		},
		{
			name:        "modified tree",
			info:        Info{Version: defaultVersion, GitCommit: defaultCommit, Timestamp: defaultTimestamp},
			mainVersion: "(devel)",
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "4f2a9c1e0b7d"},
				{Key: "vcs.modified", Value: "true"},
			},
			want: Info{Version: defaultVersion, GitCommit: "4f2a9c1e0b7d-dirty", Timestamp: defaultTimestamp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withBuildSettings(tt.info, tt.mainVersion, tt.settings))
		})
	}
}
