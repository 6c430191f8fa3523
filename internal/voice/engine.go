// Package voice drives speech output and speech input for the companion.
//
// The Engine owns two independent channels. The output channel speaks one
// utterance at a time; a new Speak supersedes the one in flight. The input
// channel runs at most one listen session and rejects overlapping requests.
// Every blocking call settles exactly once, including when it is superseded
// or stopped.
package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"lumos/internal/embellish"
)

type Option func(*Engine)

func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

type Engine struct {
	out    Synthesizer
	in     Recognizer
	logger *slog.Logger

	mu       sync.Mutex
	settings Settings
	speech   *utterance
	session  *session
}

type utterance struct {
	cancel    context.CancelFunc
	cancelled bool
}

type session struct {
	cancel  context.CancelFunc
	stopped bool
	// started is set once the device Start returned; until then the device
	// has no session for StopListening to stop.
	started bool
}

// NewEngine builds an engine over the given devices. Either device may be
// nil; the matching operations then fail with ErrDeviceUnavailable.
func NewEngine(out Synthesizer, in Recognizer, opts ...Option) *Engine {
	e := &Engine{
		out:      out,
		in:       in,
		logger:   slog.New(slog.DiscardHandler),
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Speak synthesizes text, embellishing it first when asked. It returns when
// the device finishes. A Speak or StopSpeaking issued meanwhile makes it
// return ErrSpeechCancelled.
func (e *Engine) Speak(ctx context.Context, text string, embellishText bool) error {
	if !available(e.out) {
		return ErrDeviceUnavailable
	}

	if embellishText {
		text = embellish.Embellish(text)
	}

	uctx, cancel := context.WithCancel(ctx)
	defer cancel()

	u := &utterance{cancel: cancel}

	e.mu.Lock()
	if prev := e.speech; prev != nil {
		prev.cancelled = true
		prev.cancel()
		e.out.CancelAll()
		e.logger.Debug("utterance superseded")
	}
	e.speech = u
	req := Utterance{
		Text:   text,
		Rate:   e.settings.Rate,
		Pitch:  e.settings.Pitch,
		Volume: e.settings.Volume,
		Voice:  e.settings.Voice,
	}
	e.mu.Unlock()

	e.logger.Debug("speaking", "chars", len(text), "rate", req.Rate, "pitch", req.Pitch, "volume", req.Volume)

	done := make(chan error, 1)
	go func() {
		done <- e.out.Speak(uctx, req)
	}()

	var err error
	select {
	case err = <-done:
	case <-uctx.Done():
		err = uctx.Err()
	}

	e.mu.Lock()
	cancelled := u.cancelled
	if e.speech == u {
		e.speech = nil
	}
	e.mu.Unlock()

	switch {
	case cancelled:
		return ErrSpeechCancelled
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	}

	var pe *PlaybackError
	if errors.As(err, &pe) {
		return pe
	}
	return &PlaybackError{Detail: err.Error(), Err: err}
}

// SpeakPlain speaks text as is.
func (e *Engine) SpeakPlain(ctx context.Context, text string) error {
	return e.Speak(ctx, text, false)
}

// StopSpeaking cancels the utterance in flight, if any.
func (e *Engine) StopSpeaking() {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.speech
	if u == nil {
		return
	}

	u.cancelled = true
	u.cancel()
	e.speech = nil
	e.out.CancelAll()

	e.logger.Debug("speech stopped")
}

// Listen runs one recognition session and returns its top transcript.
//
// It fails with ErrAlreadyListening while another session is open, with
// ErrNoSpeechDetected when the device ends the session without a result and
// with ErrListenStopped when StopListening ends it.
func (e *Engine) Listen(ctx context.Context) (Transcript, error) {
	if !available(e.in) {
		return Transcript{}, ErrDeviceUnavailable
	}

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{cancel: cancel}

	e.mu.Lock()
	if e.session != nil {
		e.mu.Unlock()
		return Transcript{}, ErrAlreadyListening
	}
	e.session = s
	e.mu.Unlock()

	events, err := e.in.Start(RecognitionConfig{
		Continuous:     false,
		InterimResults: false,
		Language:       Language,
	})
	if err != nil {
		e.endSession(s)
		if errors.Is(err, ErrAlreadyListening) || errors.Is(err, ErrDeviceUnavailable) {
			return Transcript{}, err
		}
		return Transcript{}, &RecognitionError{Code: "start", Message: err.Error()}
	}

	e.mu.Lock()
	s.started = true
	stopped := s.stopped
	e.mu.Unlock()
	if stopped {
		e.in.Stop()
		return Transcript{}, ErrListenStopped
	}

	e.logger.Debug("listening", "lang", Language)

	select {
	case ev, ok := <-events:
		if e.endSession(s) {
			return Transcript{}, ErrListenStopped
		}
		if !ok {
			return Transcript{}, ErrNoSpeechDetected
		}
		return e.settle(ev)

	case <-lctx.Done():
		if e.endSession(s) {
			return Transcript{}, ErrListenStopped
		}
		e.in.Stop()
		return Transcript{}, ctx.Err()
	}
}

func (e *Engine) settle(ev RecognitionEvent) (Transcript, error) {
	switch {
	case ev.Err != nil:
		e.logger.Debug("recognition failed", "code", ev.Err.Code)
		return Transcript{}, ev.Err

	case ev.Result != nil:
		t := Transcript{
			Text:       strings.TrimSpace(ev.Result.Text),
			Confidence: min(max(ev.Result.Confidence, 0), 1),
		}
		e.logger.Debug("recognized", "chars", len(t.Text), "confidence", t.Confidence)
		return t, nil
	}

	return Transcript{}, &RecognitionError{Code: "invalid-event", Message: "event without result or error"}
}

// endSession clears s if it is still current and reports whether it had been
// stopped by StopListening.
func (e *Engine) endSession(s *session) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == s {
		e.session = nil
	}
	return s.stopped
}

// StopListening ends the open session, if any.
func (e *Engine) StopListening() {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	e.session = nil
	e.mu.Unlock()

	// a session still starting is stopped by Listen once Start returns
	if started {
		e.in.Stop()
	}
	s.cancel()

	e.logger.Debug("listening stopped")
}

// UpdateSettings merges p into the current settings. The change applies from
// the next Speak on.
func (e *Engine) UpdateSettings(p SettingsPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.settings.Apply(p)
	if err := next.Validate(); err != nil {
		return err
	}
	e.settings = next
	return nil
}

// ReplaceSettings swaps the whole settings record.
func (e *Engine) ReplaceSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	e.settings = s
	e.mu.Unlock()
	return nil
}

func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Voices returns what the output device currently offers. The list may be
// empty while the platform is still enumerating.
func (e *Engine) Voices() []Voice {
	if !available(e.out) {
		return []Voice{}
	}
	vl, ok := e.out.(VoiceLister)
	if !ok {
		return []Voice{}
	}
	return append([]Voice{}, vl.Voices()...)
}

func (e *Engine) VoiceSupported() bool {
	return available(e.out)
}

func (e *Engine) RecognitionSupported() bool {
	return available(e.in)
}

func (e *Engine) Listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speech != nil
}
