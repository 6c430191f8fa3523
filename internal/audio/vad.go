// Package audio captures microphone input and lowers other applications while
// the companion talks.
package audio

import (
	"math"
	"time"
)

const (
	SampleRate = 16000
	FrameSize  = 320 // 20ms
)

// VAD decides, frame by frame, which audio belongs to an utterance. Frames
// before the first loud one are dropped; the utterance ends after enough
// trailing silence.
type VAD struct {
	Threshold float64
	Silence   time.Duration

	speaking bool
	quiet    time.Duration
}

func NewVAD() *VAD {
	return &VAD{Threshold: 0.015, Silence: 600 * time.Millisecond}
}

// Push reports whether frame is part of the utterance and whether the
// utterance has ended.
func (v *VAD) Push(frame []float32) (keep, done bool) {
	if FrameRMS(frame) > v.Threshold {
		v.speaking = true
		v.quiet = 0
		return true, false
	}

	if !v.speaking {
		return false, false
	}

	v.quiet += frameDuration(len(frame))
	if v.quiet >= v.Silence {
		return false, true
	}
	return true, false
}

// Heard reports whether any speech frame was seen.
func (v *VAD) Heard() bool {
	return v.speaking
}

func FrameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}

func frameDuration(samples int) time.Duration {
	return time.Duration(samples) * time.Second / SampleRate
}
