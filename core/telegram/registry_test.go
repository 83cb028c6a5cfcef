package telegram

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

type recordingSetter struct {
	got []tele.Command
	err error
}

func (r *recordingSetter) SetCommands(opts ...interface{}) error {
	if len(opts) > 0 {
		r.got, _ = opts[0].([]tele.Command)
	}
	return r.err
}

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "start"}))
	require.NoError(t, reg.RegisterCommand("/setup", Command{Handler: noop, Description: "setup", PrivateOnly: true}))
	require.NoError(t, reg.RegisterCommand("/play", Command{Handler: noop, Description: "play"}))

	assert.Error(t, reg.RegisterCommand("noslash", Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/", Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/bare", Command{Handler: noop}))
	assert.Error(t, reg.RegisterCommand("/play", Command{Handler: noop, Description: "dup"}))

	assert.Equal(t, []string{"/play", "/setup", "/start"}, reg.Commands())
	cmd, ok := reg.Command("/setup")
	require.True(t, ok)
	assert.True(t, cmd.PrivateOnly)

	setter := &recordingSetter{}
	SetupCommands(setter, reg)
	require.Len(t, setter.got, 3)
	assert.Equal(t, tele.Command{Text: "/play", Description: "play"}, setter.got[0])

	assert.NotPanics(t, func() { SetupCommands(&recordingSetter{err: errors.New("flood")}, reg) })
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("replay", noop))
	require.NoError(t, reg.RegisterCallback("next", noop))
	assert.Error(t, reg.RegisterCallback("next", noop))
	assert.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.Callback("next")
	assert.True(t, ok)
	_, ok = reg.Callback("stop")
	assert.False(t, ok)
}

func TestRegistryTextRoutes(t *testing.T) {
	reg := NewRegistry()
	isGroup := func(s string) bool { return strings.HasPrefix(s, "GroupID:") }
	require.NoError(t, reg.RegisterText("group_id", isGroup, noop))
	require.NoError(t, reg.RegisterText("any", func(string) bool { return true }, noop))
	assert.Error(t, reg.RegisterText("group_id", isGroup, noop))
	assert.Error(t, reg.RegisterText("nil", nil, noop))

	route, ok := reg.MatchText("GroupID: 1")
	require.True(t, ok)
	assert.Equal(t, "group_id", route.Name)

	route, ok = reg.MatchText("hello")
	require.True(t, ok)
	assert.Equal(t, "any", route.Name)
}

func TestRegistryMedia(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterMedia(tele.OnAudio, "", noop))
	assert.Error(t, reg.RegisterMedia(tele.OnAudio, "again", noop))
	assert.Error(t, reg.RegisterMedia("audio", "plain", noop))

	require.Len(t, reg.Media(), 1)
	assert.Equal(t, "audio", reg.Media()[0].Name)
	assert.Equal(t, tele.OnAudio, reg.Media()[0].Endpoint)
}
