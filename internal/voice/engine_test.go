package voice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumos/internal/embellish"
	"lumos/internal/voice"
)

const wait = 2 * time.Second

func TestEngine_SpeakAppliesSettingsAndEmbellishes(t *testing.T) {
	synth := newFakeSynth()
	eng := voice.NewEngine(synth, nil)

	require.NoError(t, eng.Speak(context.Background(), "Great job!", true))

	spoken := synth.Spoken()
	require.Len(t, spoken, 1)
	assert.Equal(t, embellish.Embellish("Great job!"), spoken[0].Text)
	assert.Equal(t, 1.0, spoken[0].Rate)
	assert.Equal(t, 1.0, spoken[0].Pitch)
	assert.Equal(t, 0.8, spoken[0].Volume)
	assert.False(t, eng.Speaking())
}

func TestEngine_SpeakPlain(t *testing.T) {
	synth := newFakeSynth()
	eng := voice.NewEngine(synth, nil)

	require.NoError(t, eng.SpeakPlain(context.Background(), "Great job!"))
	assert.Equal(t, "Great job!", synth.Spoken()[0].Text)
}

func TestEngine_SpeakWithoutDevice(t *testing.T) {
	eng := voice.NewEngine(nil, nil)

	err := eng.Speak(context.Background(), "hello", true)
	assert.ErrorIs(t, err, voice.ErrDeviceUnavailable)
	assert.False(t, eng.VoiceSupported())
}

func TestEngine_SecondSpeakSupersedesFirst(t *testing.T) {
	synth := newFakeSynth()
	synth.blockN = 1
	eng := voice.NewEngine(synth, nil)

	first := make(chan error, 1)
	go func() {
		first <- eng.Speak(context.Background(), "first", false)
	}()

	select {
	case <-synth.started:
	case <-time.After(wait):
		t.Fatal("first utterance never started")
	}
	assert.True(t, eng.Speaking())

	require.NoError(t, eng.Speak(context.Background(), "second", false))

	select {
	case err := <-first:
		assert.ErrorIs(t, err, voice.ErrSpeechCancelled)
	case <-time.After(wait):
		t.Fatal("superseded utterance never settled")
	}

	assert.Equal(t, 1, synth.Cancels())
	assert.False(t, eng.Speaking())
}

func TestEngine_StopSpeaking(t *testing.T) {
	synth := newFakeSynth()
	synth.blockN = 1
	eng := voice.NewEngine(synth, nil)

	eng.StopSpeaking()
	assert.Equal(t, 0, synth.Cancels(), "idle stop must not touch the device")

	done := make(chan error, 1)
	go func() {
		done <- eng.Speak(context.Background(), "long story", true)
	}()
	<-synth.started

	eng.StopSpeaking()
	eng.StopSpeaking()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, voice.ErrSpeechCancelled)
	case <-time.After(wait):
		t.Fatal("stopped utterance never settled")
	}
	assert.Equal(t, 1, synth.Cancels())
	assert.False(t, eng.Speaking())
}

func TestEngine_SpeakPlaybackError(t *testing.T) {
	synth := newFakeSynth()
	synth.fail = errors.New("audio sink gone")
	eng := voice.NewEngine(synth, nil)

	err := eng.Speak(context.Background(), "hello", false)

	var pe *voice.PlaybackError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "audio sink gone", pe.Detail)
	assert.False(t, eng.Speaking())

	synth.fail = nil
	assert.NoError(t, eng.Speak(context.Background(), "again", false), "channel recovers")
}

func TestEngine_SpeakKeepsDevicePlaybackError(t *testing.T) {
	synth := newFakeSynth()
	synth.fail = &voice.PlaybackError{Detail: "synthesis-failed"}
	eng := voice.NewEngine(synth, nil)

	err := eng.Speak(context.Background(), "hello", false)

	var pe *voice.PlaybackError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "synthesis-failed", pe.Detail)
}

func TestEngine_SpeakContextCancelled(t *testing.T) {
	synth := newFakeSynth()
	synth.blockN = 1
	eng := voice.NewEngine(synth, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- eng.Speak(ctx, "hello", false)
	}()
	<-synth.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(wait):
		t.Fatal("speak ignored cancellation")
	}
	assert.False(t, eng.Speaking())
}

func TestEngine_UpdateSettingsMerges(t *testing.T) {
	synth := newFakeSynth()
	eng := voice.NewEngine(synth, nil)

	require.NoError(t, eng.UpdateSettings(voice.SettingsPatch{Rate: voice.Float(1.5)}))
	require.NoError(t, eng.Speak(context.Background(), "hi", false))

	u := synth.Spoken()[0]
	assert.Equal(t, 1.5, u.Rate)
	assert.Equal(t, 1.0, u.Pitch)
	assert.Equal(t, 0.8, u.Volume)
}

func TestEngine_UpdateSettingsRejectsInvalid(t *testing.T) {
	eng := voice.NewEngine(newFakeSynth(), nil)

	tests := []voice.SettingsPatch{
		{Rate: voice.Float(0)},
		{Rate: voice.Float(11)},
		{Pitch: voice.Float(-0.1)},
		{Pitch: voice.Float(2.1)},
		{Volume: voice.Float(1.2)},
	}

	for _, p := range tests {
		assert.Error(t, eng.UpdateSettings(p))
	}
	assert.Equal(t, voice.DefaultSettings(), eng.Settings())

	assert.Error(t, eng.ReplaceSettings(voice.Settings{Rate: -1}))
	require.NoError(t, eng.ReplaceSettings(voice.Enchanted(voice.SettingsPatch{Voice: voice.String("alloy")})))
	assert.Equal(t, "alloy", eng.Settings().Voice)
}

func TestEngine_SettingsChangeDoesNotTouchUtteranceInFlight(t *testing.T) {
	synth := newFakeSynth()
	synth.release = make(chan struct{})
	eng := voice.NewEngine(synth, nil)

	done := make(chan error, 1)
	go func() {
		done <- eng.Speak(context.Background(), "slowly", false)
	}()
	inFlight := <-synth.started

	require.NoError(t, eng.UpdateSettings(voice.SettingsPatch{Rate: voice.Float(2), Voice: voice.String("nova")}))
	close(synth.release)
	require.NoError(t, <-done)

	assert.Equal(t, 1.0, inFlight.Rate)
	assert.Empty(t, inFlight.Voice)

	require.NoError(t, eng.Speak(context.Background(), "faster", false))
	next := synth.Spoken()[1]
	assert.Equal(t, 2.0, next.Rate)
	assert.Equal(t, "nova", next.Voice)
}

func TestEngine_ListenReturnsTranscript(t *testing.T) {
	rec := newFakeRecognizer()
	eng := voice.NewEngine(nil, rec)

	done := make(chan struct{})
	var (
		got voice.Transcript
		err error
	)
	go func() {
		defer close(done)
		got, err = eng.Listen(context.Background())
	}()

	<-rec.started
	assert.True(t, eng.Listening())
	rec.emit(voice.ResultEvent("  open chat please ", 1.7))
	<-done

	require.NoError(t, err)
	assert.Equal(t, "open chat please", got.Text)
	assert.Equal(t, 1.0, got.Confidence)
	assert.False(t, eng.Listening())

	require.Len(t, rec.cfgs, 1)
	assert.Equal(t, voice.RecognitionConfig{Language: "en-US"}, rec.cfgs[0])
}

func TestEngine_ListenWhileListening(t *testing.T) {
	rec := newFakeRecognizer()
	eng := voice.NewEngine(nil, rec)

	done := make(chan error, 1)
	go func() {
		_, err := eng.Listen(context.Background())
		done <- err
	}()
	<-rec.started

	_, err := eng.Listen(context.Background())
	assert.ErrorIs(t, err, voice.ErrAlreadyListening)

	starts, _ := rec.counts()
	assert.Equal(t, 1, starts, "second listen must not reach the device")

	rec.emit(voice.ResultEvent("stop", 0.9))
	assert.NoError(t, <-done)
}

func TestEngine_ListenRecognitionError(t *testing.T) {
	rec := newFakeRecognizer()
	eng := voice.NewEngine(nil, rec)

	go func() {
		<-rec.started
		rec.emit(voice.ErrorEvent("network", "connection reset"))
	}()

	_, err := eng.Listen(context.Background())

	var re *voice.RecognitionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "network", re.Code)
	assert.Equal(t, "connection reset", re.Message)
	assert.False(t, eng.Listening())
}

func TestEngine_ListenEndWithoutResult(t *testing.T) {
	rec := newFakeRecognizer()
	eng := voice.NewEngine(nil, rec)

	go func() {
		<-rec.started
		rec.end()
	}()

	_, err := eng.Listen(context.Background())
	assert.ErrorIs(t, err, voice.ErrNoSpeechDetected)
	assert.False(t, eng.Listening())
}

func TestEngine_ListenInvalidEvent(t *testing.T) {
	rec := newFakeRecognizer()
	eng := voice.NewEngine(nil, rec)

	go func() {
		<-rec.started
		rec.emit(voice.RecognitionEvent{})
	}()

	_, err := eng.Listen(context.Background())

	var re *voice.RecognitionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "invalid-event", re.Code)
}

func TestEngine_StopListening(t *testing.T) {
	rec := newFakeRecognizer()
	eng := voice.NewEngine(nil, rec)

	eng.StopListening()
	_, stops := rec.counts()
	assert.Equal(t, 0, stops, "idle stop must not touch the device")

	done := make(chan error, 1)
	go func() {
		_, err := eng.Listen(context.Background())
		done <- err
	}()
	<-rec.started

	eng.StopListening()
	eng.StopListening()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, voice.ErrListenStopped)
	case <-time.After(wait):
		t.Fatal("stopped listen never settled")
	}

	_, stops = rec.counts()
	assert.Equal(t, 1, stops)
	assert.False(t, eng.Listening())
}

func TestEngine_StopListeningWhileDeviceStarts(t *testing.T) {
	rec := newFakeRecognizer()
	rec.gate = make(chan struct{})
	rec.entered = make(chan struct{}, 1)
	eng := voice.NewEngine(nil, rec)

	done := make(chan error, 1)
	go func() {
		_, err := eng.Listen(context.Background())
		done <- err
	}()
	<-rec.entered

	eng.StopListening()
	assert.False(t, eng.Listening())
	close(rec.gate)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, voice.ErrListenStopped)
	case <-time.After(wait):
		t.Fatal("stopped listen never settled")
	}

	assert.False(t, rec.active(), "device session left open after listen settled")
	_, stops := rec.counts()
	assert.Equal(t, 1, stops)

	// the device is free for the next session
	<-rec.started
	go func() {
		<-rec.started
		rec.emit(voice.ResultEvent("help", 0.9))
	}()
	got, err := eng.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "help", got.Text)
}

func TestEngine_ListenContextCancelled(t *testing.T) {
	rec := newFakeRecognizer()
	eng := voice.NewEngine(nil, rec)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-rec.started
		cancel()
	}()

	_, err := eng.Listen(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, stops := rec.counts()
	assert.Equal(t, 1, stops)
	assert.False(t, eng.Listening())
}

func TestEngine_ListenWithoutDevice(t *testing.T) {
	eng := voice.NewEngine(nil, nil)

	_, err := eng.Listen(context.Background())
	assert.ErrorIs(t, err, voice.ErrDeviceUnavailable)
	assert.False(t, eng.RecognitionSupported())

	off := voice.NewEngine(nil, offline{newFakeRecognizer()})
	_, err = off.Listen(context.Background())
	assert.ErrorIs(t, err, voice.ErrDeviceUnavailable)
	assert.False(t, off.RecognitionSupported())
}

func TestEngine_ListenStartFailure(t *testing.T) {
	rec := newFakeRecognizer()
	rec.startErr = errors.New("no microphone")
	eng := voice.NewEngine(nil, rec)

	_, err := eng.Listen(context.Background())

	var re *voice.RecognitionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "start", re.Code)
	assert.False(t, eng.Listening())

	rec.startErr = nil
	go func() {
		<-rec.started
		rec.emit(voice.ResultEvent("help", 1))
	}()
	got, err := eng.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "help", got.Text)
}

func TestEngine_Voices(t *testing.T) {
	assert.Empty(t, voice.NewEngine(nil, nil).Voices())
	assert.NotNil(t, voice.NewEngine(nil, nil).Voices())

	synth := newFakeSynth()
	assert.Empty(t, voice.NewEngine(synth, nil).Voices())

	synth.voices = []voice.Voice{{ID: "alloy", Name: "Alloy", Language: "en-US", Default: true}}
	eng := voice.NewEngine(synth, nil)
	assert.Equal(t, synth.voices, eng.Voices())
	assert.True(t, eng.VoiceSupported())
}

func TestExclusive_SharedRecognizer(t *testing.T) {
	rec := newFakeRecognizer()
	shared := voice.Exclusive(rec)
	a := voice.NewEngine(nil, shared)
	b := voice.NewEngine(nil, shared)

	done := make(chan error, 1)
	go func() {
		_, err := a.Listen(context.Background())
		done <- err
	}()
	<-rec.started

	_, err := b.Listen(context.Background())
	assert.ErrorIs(t, err, voice.ErrAlreadyListening)
	assert.False(t, b.Listening())

	rec.emit(voice.ResultEvent("talk to me", 0.8))
	require.NoError(t, <-done)

	go func() {
		<-rec.started
		rec.emit(voice.ResultEvent("quiet", 0.8))
	}()
	got, err := b.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quiet", got.Text)
}

func TestEnchanted(t *testing.T) {
	s := voice.Enchanted(voice.SettingsPatch{Rate: voice.Float(3), Volume: voice.Float(0.5)})

	assert.Equal(t, 0.9, s.Rate)
	assert.Equal(t, 1.1, s.Pitch)
	assert.Equal(t, 0.5, s.Volume)
	assert.NoError(t, s.Validate())
}
