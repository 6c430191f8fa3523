package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumos/internal/companion"
	"lumos/internal/ipc"
	"lumos/internal/prefs"
	"lumos/internal/session"
	"lumos/internal/voice"
)

// newTextOnly builds a daemon with no speech devices, so every reply is text.
func newTextOnly(t *testing.T) *daemon {
	t.Helper()

	store, err := prefs.Open("")
	require.NoError(t, err)

	engine := voice.NewEngine(nil, nil, voice.WithSettings(store.Get().Voice))
	pal := companion.New(nil, store, nil, nil)
	ctl := session.NewController(engine, nil, pal.Handlers())

	return &daemon{engine: engine, ctl: ctl, prefs: store}
}

func TestHandle_SayDispatches(t *testing.T) {
	d := newTextOnly(t)

	resp := d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdSay, Text: "revelio mood, I feel creative"})
	require.True(t, resp.OK, resp.Error)
	assert.Equal(t, "MOOD", resp.Intent)
	assert.Contains(t, resp.Reply, "creative")
	assert.Equal(t, "creative", d.prefs.Get().Mood)

	resp = d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdSay, Text: "abracadabra"})
	require.True(t, resp.OK)
	assert.Empty(t, resp.Intent)
	assert.Equal(t, session.UnrecognizedReply, resp.Reply)
}

func TestHandle_NeedsText(t *testing.T) {
	d := newTextOnly(t)

	for _, cmd := range []string{ipc.CmdSay, ipc.CmdSpeak} {
		resp := d.handle(context.Background(), ipc.Request{Cmd: cmd, Text: "  "})
		assert.False(t, resp.OK, cmd)
		assert.Equal(t, errNoText.Error(), resp.Error)
	}
}

func TestHandle_ListenWithoutMicrophone(t *testing.T) {
	d := newTextOnly(t)

	resp := d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdListen})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, voice.ErrDeviceUnavailable.Error())

	resp = d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdSpeak, Text: "hello"})
	assert.False(t, resp.OK)
}

func TestHandle_SettingsPersist(t *testing.T) {
	d := newTextOnly(t)

	resp := d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdSettings, Rate: voice.Float(1.5), Voice: voice.String("nova")})
	require.True(t, resp.OK, resp.Error)
	require.NotNil(t, resp.Status)
	assert.InDelta(t, 1.5, resp.Status.Settings.Rate, 1e-9)
	assert.Equal(t, "nova", d.prefs.Get().Voice.Voice)
	assert.InDelta(t, 1.5, d.prefs.Get().Voice.Rate, 1e-9)

	resp = d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdSettings, Volume: voice.Float(3)})
	assert.False(t, resp.OK)
	assert.InDelta(t, 1.5, d.engine.Settings().Rate, 1e-9, "a bad patch changes nothing")
}

func TestHandle_Status(t *testing.T) {
	d := newTextOnly(t)

	resp := d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdStatus})
	require.True(t, resp.OK)
	assert.Equal(t, &ipc.Status{
		Settings: voice.Enchanted(voice.SettingsPatch{}),
		House:    "gryffindor",
		Mood:     "happy",
	}, resp.Status)

	assert.True(t, d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdStop}).OK)
	assert.True(t, d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdVoices}).OK)
	assert.False(t, d.handle(context.Background(), ipc.Request{Cmd: "fly"}).OK)
}

func TestHandle_ResetRestoresDefaults(t *testing.T) {
	d := newTextOnly(t)

	resp := d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdSettings, Rate: voice.Float(2), Volume: voice.Float(0.2)})
	require.True(t, resp.OK, resp.Error)
	resp = d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdSay, Text: "sorting hat, slytherin please"})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "slytherin", d.prefs.Get().House)

	resp = d.handle(context.Background(), ipc.Request{Cmd: ipc.CmdReset})
	require.True(t, resp.OK, resp.Error)

	defaults := prefs.Defaults()
	assert.Equal(t, defaults, d.prefs.Get())
	assert.Equal(t, defaults.Voice, d.engine.Settings(), "engine follows the reset")
	assert.Equal(t, "gryffindor", resp.Status.House)
}
