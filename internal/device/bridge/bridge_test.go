package bridge_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumos/internal/device/bridge"
	"lumos/internal/voice"
)

// browser plays the page side of the bridge.
type browser struct {
	t    *testing.T
	conn *websocket.Conn
}

func connect(t *testing.T) (*bridge.Bridge, *browser) {
	t.Helper()

	b := bridge.New(nil)
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, b.Available, time.Second, 5*time.Millisecond)
	return b, &browser{t: t, conn: conn}
}

func (br *browser) read() bridge.Message {
	br.t.Helper()
	var m bridge.Message
	require.NoError(br.t, br.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(br.t, br.conn.ReadJSON(&m))
	return m
}

func (br *browser) write(m bridge.Message) {
	br.t.Helper()
	require.NoError(br.t, br.conn.WriteJSON(m))
}

func TestBridge_Speak(t *testing.T) {
	b, br := connect(t)
	e := voice.NewEngine(b, nil)

	done := make(chan error, 1)
	go func() { done <- e.SpeakPlain(context.Background(), "Lumos") }()

	m := br.read()
	assert.Equal(t, bridge.KindSpeak, m.Kind)
	assert.Equal(t, "Lumos", m.Text)
	assert.InDelta(t, 1.0, m.Rate, 1e-9)
	require.NotNil(t, m.Volume)
	assert.InDelta(t, 0.8, *m.Volume, 1e-9)

	br.write(bridge.Message{Kind: bridge.KindSpoken, ID: m.ID})
	assert.NoError(t, <-done)
}

func TestBridge_SpeakError(t *testing.T) {
	b, br := connect(t)

	done := make(chan error, 1)
	go func() {
		done <- b.Speak(context.Background(), voice.Utterance{Text: "x", Rate: 1, Pitch: 1, Volume: 1})
	}()

	m := br.read()
	br.write(bridge.Message{Kind: bridge.KindSpeakError, ID: m.ID, Code: "synthesis-failed", Error: "no voices"})

	var pe *voice.PlaybackError
	require.ErrorAs(t, <-done, &pe)
	assert.Equal(t, "synthesis-failed: no voices", pe.Detail)
}

func TestBridge_SpeakCancelled(t *testing.T) {
	b, br := connect(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- b.Speak(ctx, voice.Utterance{Text: "long", Rate: 1, Pitch: 1, Volume: 1})
	}()

	speak := br.read()
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	m := br.read()
	assert.Equal(t, bridge.KindCancel, m.Kind)
	assert.Equal(t, speak.ID, m.ID)
}

func TestBridge_Listen(t *testing.T) {
	b, br := connect(t)
	e := voice.NewEngine(nil, b)

	type result struct {
		tr  voice.Transcript
		err error
	}
	done := make(chan result, 1)
	go func() {
		tr, err := e.Listen(context.Background())
		done <- result{tr, err}
	}()

	m := br.read()
	assert.Equal(t, bridge.KindListen, m.Kind)
	assert.Equal(t, voice.Language, m.Language)
	assert.False(t, m.Continuous)
	assert.False(t, m.InterimResults)

	br.write(bridge.Message{Kind: bridge.KindResult, Transcript: "open chat", Confidence: 0.93})

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "open chat", r.tr.Text)
	assert.InDelta(t, 0.93, r.tr.Confidence, 1e-9)
}

func TestBridge_ListenEndAndError(t *testing.T) {
	b, br := connect(t)
	e := voice.NewEngine(nil, b)

	done := make(chan error, 1)
	listen := func() {
		go func() {
			_, err := e.Listen(context.Background())
			done <- err
		}()
		br.read()
	}

	listen()
	br.write(bridge.Message{Kind: bridge.KindEnd})
	assert.ErrorIs(t, <-done, voice.ErrNoSpeechDetected)

	listen()
	br.write(bridge.Message{Kind: bridge.KindRecognitionError, Code: "not-allowed", Error: "permission denied"})

	var re *voice.RecognitionError
	require.ErrorAs(t, <-done, &re)
	assert.Equal(t, "not-allowed", re.Code)
}

func TestBridge_StopListening(t *testing.T) {
	b, br := connect(t)
	e := voice.NewEngine(nil, b)

	done := make(chan error, 1)
	go func() {
		_, err := e.Listen(context.Background())
		done <- err
	}()
	br.read()

	e.StopListening()
	assert.ErrorIs(t, <-done, voice.ErrListenStopped)
	assert.Equal(t, bridge.KindStopListen, br.read().Kind)
}

func TestBridge_Disconnect(t *testing.T) {
	b, br := connect(t)
	e := voice.NewEngine(b, b)

	done := make(chan error, 1)
	go func() {
		_, err := e.Listen(context.Background())
		done <- err
	}()
	br.read()

	require.NoError(t, br.conn.Close())

	var re *voice.RecognitionError
	require.ErrorAs(t, <-done, &re)
	assert.Equal(t, "network", re.Code)

	require.Eventually(t, func() bool { return !b.Available() }, time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(e.SpeakPlain(context.Background(), "hi"), voice.ErrDeviceUnavailable))
}

func TestBridge_Voices(t *testing.T) {
	b, br := connect(t)
	assert.Empty(t, b.Voices())

	br.write(bridge.Message{Kind: bridge.KindVoices, Voices: []voice.Voice{
		{ID: "Samantha", Name: "Samantha", Language: "en-US", Default: true},
	}})

	require.Eventually(t, func() bool { return len(b.Voices()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Samantha", b.Voices()[0].Name)
}
