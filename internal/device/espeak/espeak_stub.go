//go:build !espeak

package espeak

import (
	"context"
	"errors"

	"lumos/internal/voice"
)

var ErrNotBuilt = errors.New("espeak support not compiled in (build with -tags espeak)")

type Synthesizer struct{}

func New() (*Synthesizer, error) {
	return nil, ErrNotBuilt
}

func (*Synthesizer) Close() error { return nil }

func (*Synthesizer) Available() bool { return false }

func (*Synthesizer) Speak(context.Context, voice.Utterance) error {
	return voice.ErrDeviceUnavailable
}

func (*Synthesizer) CancelAll() {}

func (*Synthesizer) Voices() []voice.Voice { return nil }
