// Package playback plays decoded audio through the system speaker.
package playback

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
)

const quality = 4

// Player plays s to completion or until ctx is done.
type Player interface {
	Play(ctx context.Context, s beep.Streamer, format beep.Format) error
	// Clear drops everything that is playing.
	Clear()
}

// Shape applies a pitch ratio and a linear volume in [0, 1] to s.
func Shape(s beep.Streamer, pitch, volume float64) beep.Streamer {
	if pitch > 0 && pitch != 1 {
		s = beep.ResampleRatio(quality, pitch, s)
	}
	if volume >= 1 {
		return s
	}
	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   math.Log2(math.Max(volume, 1e-6)),
		Silent:   volume <= 0,
	}
}

// Speaker is the process wide beep speaker. It is initialised on first use
// at a fixed rate and resamples everything else to it.
type Speaker struct {
	rate beep.SampleRate

	once    sync.Once
	initErr error
}

func NewSpeaker() *Speaker {
	return &Speaker{rate: 44100}
}

func (sp *Speaker) init() error {
	sp.once.Do(func() {
		sp.initErr = speaker.Init(sp.rate, sp.rate.N(time.Second/10))
	})
	return sp.initErr
}

func (sp *Speaker) Play(ctx context.Context, s beep.Streamer, format beep.Format) error {
	if err := sp.init(); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}

	if format.SampleRate != sp.rate {
		s = beep.Resample(quality, format.SampleRate, sp.rate, s)
	}

	done := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: beep.Seq(s, beep.Callback(func() { close(done) }))}
	speaker.Play(ctrl)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		return ctx.Err()
	}
}

func (sp *Speaker) Clear() {
	if sp.init() == nil {
		speaker.Clear()
	}
}
