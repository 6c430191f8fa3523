// Package mic recognizes speech from a local microphone.
package mic

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lumos/internal/audio"
	"lumos/internal/voice"
	"lumos/pkg/stt"
)

// transcribers give no score
const confidence = 1.0

// how long Start waits for a stopped session to let go of the microphone
const drainTimeout = 2 * time.Second

// Capturer records one utterance; it returns audio.ErrStopped once stop is
// closed.
type Capturer interface {
	Record(stop <-chan struct{}) ([]float32, error)
}

type Recognizer struct {
	capture Capturer
	stt     stt.Transcriber
	timeout time.Duration
	logger  *slog.Logger

	mu  sync.Mutex
	cur *session
}

type session struct {
	stop    func()
	stopped bool
	// closed once the capture goroutine is done with the device
	done chan struct{}
}

func New(c Capturer, t stt.Transcriber, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recognizer{capture: c, stt: t, timeout: 60 * time.Second, logger: logger}
}

// Start opens a capture session. A session that was stopped but is still
// unwinding is waited for, up to drainTimeout.
func (r *Recognizer) Start(cfg voice.RecognitionConfig) (<-chan voice.RecognitionEvent, error) {
	r.mu.Lock()
	prev := r.cur
	draining := prev != nil && prev.stopped
	r.mu.Unlock()

	if prev != nil {
		if !draining {
			return nil, voice.ErrAlreadyListening
		}
		select {
		case <-prev.done:
		case <-time.After(drainTimeout):
			return nil, voice.ErrAlreadyListening
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cur != nil {
		return nil, voice.ErrAlreadyListening
	}

	stop := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	var once sync.Once
	s := &session{
		stop: func() {
			once.Do(func() {
				close(stop)
				cancel()
			})
		},
		done: make(chan struct{}),
	}
	r.cur = s

	events := make(chan voice.RecognitionEvent, 1)
	go r.run(ctx, s, stop, stt.Language(cfg.Language), events)

	return events, nil
}

func (r *Recognizer) Stop() {
	r.mu.Lock()
	s := r.cur
	if s != nil {
		s.stopped = true
	}
	r.mu.Unlock()

	if s != nil {
		s.stop()
	}
}

func (r *Recognizer) run(ctx context.Context, s *session, stop <-chan struct{}, lang string, events chan<- voice.RecognitionEvent) {
	ev, ok := r.recognize(ctx, stop, lang)

	// free the device before the caller sees the event
	r.finish(s)

	if ok {
		events <- ev
	}
	close(events)
}

func (r *Recognizer) recognize(ctx context.Context, stop <-chan struct{}, lang string) (voice.RecognitionEvent, bool) {
	pcm, err := r.capture.Record(stop)
	switch {
	case errors.Is(err, audio.ErrStopped):
		return voice.RecognitionEvent{}, false
	case err != nil:
		return voice.ErrorEvent("audio-capture", err.Error()), true
	case len(pcm) == 0:
		r.logger.Debug("no speech captured")
		return voice.RecognitionEvent{}, false
	}

	r.logger.Debug("recorded", "samples", len(pcm))

	res, err := r.stt.TranscribePCM(ctx, pcm, stt.Options{Language: lang})
	select {
	case <-stop:
		return voice.RecognitionEvent{}, false
	default:
	}
	if err != nil {
		return voice.ErrorEvent("transcription", err.Error()), true
	}
	if res.Empty() {
		return voice.RecognitionEvent{}, false
	}

	return voice.ResultEvent(strings.TrimSpace(res.Text), confidence), true
}

func (r *Recognizer) finish(s *session) {
	r.mu.Lock()
	if r.cur == s {
		r.cur = nil
	}
	r.mu.Unlock()

	s.stop()
	close(s.done)
}
