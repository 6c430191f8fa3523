// Package notify plays short cues to the user.
package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	"lumos/internal/playback"
)

// Earcon is the chime played when the microphone opens.
type Earcon struct {
	path    string
	player  playback.Player
	volume  float64
	timeout time.Duration
}

func NewEarcon(path string, p playback.Player, volume float64) *Earcon {
	return &Earcon{path: path, player: p, volume: volume, timeout: 5 * time.Second}
}

// Play blocks until the cue has finished.
func (e *Earcon) Play() error {
	f, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("earcon: %w", err)
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(e.path)) {
	case ".wav":
		s, format, err = wav.Decode(f)
	default:
		s, format, err = mp3.Decode(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("earcon decode: %w", err)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	return e.player.Play(ctx, playback.Shape(s, 1, e.volume), format)
}
