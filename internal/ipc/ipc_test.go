package ipc_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumos/internal/ipc"
	"lumos/internal/voice"
)

func socketPath(t *testing.T) string {
	t.Helper()
	// unix socket paths are short; TempDir can be long on some systems
	dir, err := os.MkdirTemp("", "lumos")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func serve(t *testing.T, h ipc.Handler) string {
	t.Helper()
	path := socketPath(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ipc.Serve(ctx, path, h, nil) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	require.Eventually(t, func() bool {
		c, err := net.Dial("unix", path)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 2*time.Second, 5*time.Millisecond)

	return path
}

func TestRoundTrip(t *testing.T) {
	var got ipc.Request
	path := serve(t, func(_ context.Context, req ipc.Request) ipc.Response {
		got = req
		return ipc.Response{OK: true, Reply: "hello", Voices: []voice.Voice{{ID: "nova"}}}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := ipc.Send(ctx, path, ipc.Request{Cmd: ipc.CmdSettings, Rate: voice.Float(1.5)})
	require.NoError(t, err)

	assert.Equal(t, "hello", resp.Reply)
	assert.Equal(t, "nova", resp.Voices[0].ID)
	assert.Equal(t, ipc.CmdSettings, got.Cmd)
	require.NotNil(t, got.Rate)
	assert.InDelta(t, 1.5, *got.Rate, 1e-9)
	assert.Nil(t, got.Pitch)
}

func TestFailureIsAnError(t *testing.T) {
	path := serve(t, func(context.Context, ipc.Request) ipc.Response {
		return ipc.Fail(voice.ErrAlreadyListening)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := ipc.Send(ctx, path, ipc.Request{Cmd: ipc.CmdListen})
	require.Error(t, err)
	assert.Equal(t, voice.ErrAlreadyListening.Error(), err.Error())
	assert.False(t, resp.OK)
}

func TestSend_NoDaemon(t *testing.T) {
	_, err := ipc.Send(context.Background(), socketPath(t), ipc.Request{Cmd: ipc.CmdStatus})
	assert.Error(t, err)
}
