//go:build portaudio

package audio

import (
	"time"

	"github.com/gordonklaus/portaudio"
)

type Recorder struct {
	MaxLength time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{MaxLength: 10 * time.Second}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() error {
	return portaudio.Terminate()
}

// Record captures one utterance from the default input device. It returns
// when the speaker falls silent, when MaxLength is reached, or with
// ErrStopped once stop is closed.
func (r *Recorder) Record(stop <-chan struct{}) ([]float32, error) {
	buf := make([]float32, FrameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	vad := NewVAD()
	maxFrames := int(r.MaxLength / frameDuration(FrameSize))

	for range maxFrames {
		select {
		case <-stop:
			return nil, ErrStopped
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		keep, done := vad.Push(buf)
		if keep {
			out = append(out, buf...)
		}
		if done {
			break
		}
	}

	return out, nil
}
