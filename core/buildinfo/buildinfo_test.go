package buildinfo

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillFromVCSStamp(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		},
	}
	got := fill(Info{}, bi)
	assert.Equal(t, Info{Commit: "0123456", Date: "2026-10-01T12:00:00Z"}, got)
}

func TestLinkerValuesWin(t *testing.T) {
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "v0.2.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fffffff"}},
	}
	got := fill(Info{Version: "v0.3.0", Commit: "abcdef0"}, bi)
	assert.Equal(t, "v0.3.0", got.Version)
	assert.Equal(t, "abcdef0", got.Commit)
}

func TestReadDefaults(t *testing.T) {
	info := Read()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
}
