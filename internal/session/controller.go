// Package session runs one listen, classify and respond cycle on top of the
// voice engine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lumos/internal/command"
	"lumos/internal/voice"
)

const (
	UnrecognizedReply = "I did not catch a spell I know. Say help to hear the commands."
	UnavailableReply  = "That spell is not ready yet."
)

// Voice is the part of the engine the controller drives.
type Voice interface {
	Listen(ctx context.Context) (voice.Transcript, error)
	Speak(ctx context.Context, text string, embellish bool) error
	StopSpeaking()
}

// Handler performs the application action for an intent and returns the text
// to speak back. An empty reply is not spoken.
type Handler func(ctx context.Context, transcript string) (string, error)

// Earcon signals the user that the microphone is open.
type Earcon interface {
	Play() error
}

type Outcome struct {
	Transcript string
	Intent     command.Intent
	Reply      string
	Recognized bool
}

type Controller struct {
	voice    Voice
	lexicon  *command.Lexicon
	handlers map[command.Intent]Handler
	earcon   Earcon
	logger   *slog.Logger
}

type Option func(*Controller)

func WithEarcon(e Earcon) Option {
	return func(c *Controller) { c.earcon = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewController(v Voice, lexicon *command.Lexicon, handlers map[command.Intent]Handler, opts ...Option) *Controller {
	if lexicon == nil {
		lexicon = command.DefaultLexicon()
	}

	c := &Controller{
		voice:    v,
		lexicon:  lexicon,
		handlers: handlers,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunOnce listens for one command and acts on it. Listen failures are
// returned as is; the controller never retries.
func (c *Controller) RunOnce(ctx context.Context) (Outcome, error) {
	if c.earcon != nil {
		if err := c.earcon.Play(); err != nil {
			c.logger.Warn("earcon failed", "err", err)
		}
	}

	c.logger.Info("listening for a command")

	t, err := c.voice.Listen(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("listening: %w", err)
	}

	c.logger.Info("heard", "text", t.Text, "confidence", t.Confidence)

	return c.Handle(ctx, t.Text)
}

// Handle classifies a transcript, typed or heard, and dispatches it.
func (c *Controller) Handle(ctx context.Context, transcript string) (Outcome, error) {
	out := Outcome{
		Transcript: transcript,
		Intent:     c.lexicon.Classify(transcript),
	}

	switch out.Intent {
	case command.None:
		c.logger.Info("unrecognized command", "text", transcript)
		out.Reply = UnrecognizedReply
		return out, c.reply(ctx, out.Reply)

	case command.Stop:
		out.Recognized = true
		c.voice.StopSpeaking()
		if h, ok := c.handlers[command.Stop]; ok {
			if _, err := h(ctx, transcript); err != nil {
				return out, fmt.Errorf("%s: %w", out.Intent, err)
			}
		}
		c.logger.Info("dispatched", "intent", out.Intent)
		return out, nil
	}

	out.Recognized = true

	h, ok := c.handlers[out.Intent]
	if !ok {
		c.logger.Warn("no handler for intent", "intent", out.Intent)
		out.Reply = UnavailableReply
		return out, c.reply(ctx, out.Reply)
	}

	reply, err := h(ctx, transcript)
	if err != nil {
		return out, fmt.Errorf("%s: %w", out.Intent, err)
	}

	c.logger.Info("dispatched", "intent", out.Intent, "reply_chars", len(reply))

	out.Reply = reply
	return out, c.reply(ctx, reply)
}

func (c *Controller) reply(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	err := c.voice.Speak(ctx, text, true)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, voice.ErrDeviceUnavailable):
		// text-only setup; the reply still travels in the outcome
		c.logger.Debug("no output device, reply not spoken")
		return nil
	case errors.Is(err, voice.ErrSpeechCancelled):
		return nil
	}

	return fmt.Errorf("speaking reply: %w", err)
}
