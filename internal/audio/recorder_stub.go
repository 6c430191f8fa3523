//go:build !portaudio

package audio

import (
	"errors"
	"time"
)

var ErrNoPortAudio = errors.New("microphone support not compiled in (build with -tags portaudio)")

type Recorder struct {
	MaxLength time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{MaxLength: 10 * time.Second}
}

func (r *Recorder) Init() error { return ErrNoPortAudio }

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Record(<-chan struct{}) ([]float32, error) {
	return nil, ErrNoPortAudio
}
