// Package speech synthesizes utterances with the OpenAI speech endpoint and
// plays them locally.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/faiface/beep/mp3"
	openai "github.com/openai/openai-go/v3"

	"lumos/internal/playback"
	"lumos/internal/voice"
)

const (
	DefaultModel = "gpt-4o-mini-tts"
	DefaultVoice = "nova"

	duckFactor = 0.3
	duckFade   = 250 * time.Millisecond
)

var voiceNames = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer", "verse",
}

// Ducker lowers other applications while we talk.
type Ducker interface {
	Duck(ctx context.Context, factor float64, fade time.Duration) error
	Restore(ctx context.Context, fade time.Duration) error
}

type Config struct {
	Client openai.Client
	Model  string
	Voice  string
	// Enabled is false when no API key is configured.
	Enabled bool

	Player playback.Player
	Ducker Ducker
	Logger *slog.Logger
}

type Synthesizer struct {
	client  openai.Client
	model   string
	voice   string
	enabled bool
	player  playback.Player
	ducker  Ducker
	logger  *slog.Logger

	mu      sync.Mutex
	next    uint64
	cancels map[uint64]context.CancelFunc
}

func New(cfg Config) *Synthesizer {
	s := &Synthesizer{
		client:  cfg.Client,
		model:   cfg.Model,
		voice:   cfg.Voice,
		enabled: cfg.Enabled,
		player:  cfg.Player,
		ducker:  cfg.Ducker,
		logger:  cfg.Logger,
		cancels: make(map[uint64]context.CancelFunc),
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.voice == "" {
		s.voice = DefaultVoice
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

func (s *Synthesizer) Available() bool {
	return s.enabled && s.player != nil
}

func (s *Synthesizer) Voices() []voice.Voice {
	out := make([]voice.Voice, len(voiceNames))
	for i, name := range voiceNames {
		out[i] = voice.Voice{
			ID:       name,
			Name:     name,
			Language: voice.Language,
			Default:  name == s.voice,
		}
	}
	return out
}

func (s *Synthesizer) Speak(ctx context.Context, u voice.Utterance) error {
	ctx, cancel := context.WithCancel(ctx)
	id := s.track(cancel)
	defer s.untrack(id)

	name := u.Voice
	if name == "" {
		name = s.voice
	}

	body := map[string]any{
		"model":           s.model,
		"input":           u.Text,
		"voice":           name,
		"response_format": "mp3",
		"speed":           min(max(u.Rate, 0.25), 4.0),
	}

	var resp *http.Response
	if err := s.client.Post(ctx, "audio/speech", body, &resp); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &voice.PlaybackError{Detail: "synthesis failed", Err: err}
	}

	stream, format, err := mp3.Decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		return &voice.PlaybackError{Detail: "decoding speech", Err: err}
	}
	defer stream.Close()

	if s.ducker != nil {
		if err := s.ducker.Duck(ctx, duckFactor, duckFade); err != nil {
			s.logger.Warn("ducking failed", "err", err)
		}
		defer func() {
			// restore even when ctx is already cancelled
			if err := s.ducker.Restore(context.WithoutCancel(ctx), duckFade); err != nil {
				s.logger.Warn("restore failed", "err", err)
			}
		}()
	}

	s.logger.Debug("speaking", "voice", name, "chars", len(u.Text))

	err = s.player.Play(ctx, playback.Shape(stream, u.Pitch, u.Volume), format)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &voice.PlaybackError{Detail: fmt.Sprintf("playing %s", name), Err: err}
}

// CancelAll aborts every utterance in flight, synthesis or playback.
func (s *Synthesizer) CancelAll() {
	s.mu.Lock()
	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()

	if s.player != nil {
		s.player.Clear()
	}
}

func (s *Synthesizer) track(cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.cancels[s.next] = cancel
	return s.next
}

func (s *Synthesizer) untrack(id uint64) {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	delete(s.cancels, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}
