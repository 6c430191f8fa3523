package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

// SinkInput is one playback stream known to the sound server.
type SinkInput struct {
	ID      int
	Volume  int // percent
	AppName string
}

// Mixer reads and sets per-stream volumes.
type Mixer interface {
	SinkInputs(ctx context.Context) ([]SinkInput, error)
	SetVolume(ctx context.Context, id, percent int) error
}

type fade struct {
	id, from, to int
}

// Ducker fades every stream except our own down while the companion speaks
// and back up afterwards.
type Ducker struct {
	mixer Mixer

	mu        sync.Mutex
	active    bool
	selfNames []string
	original  map[int]int
	minVolume int
}

func NewDucker(m Mixer, selfNames []string, minVolume int) *Ducker {
	if m == nil {
		m = Pactl{}
	}
	return &Ducker{
		mixer:     m,
		selfNames: append([]string(nil), selfNames...),
		original:  make(map[int]int),
		minVolume: min(max(minVolume, 0), maxVolume),
	}
}

// Duck scales foreign streams to volume*factor, never below minVolume.
// Ducking twice is a no-op.
func (d *Ducker) Duck(ctx context.Context, factor float64, dur time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.mixer.SinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("listing streams: %w", err)
	}

	d.original = make(map[int]int)

	var targets []fade
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}

		to := math.Max(float64(s.Volume)*factor, float64(d.minVolume))
		to = math.Min(to, maxVolume)

		d.original[s.ID] = s.Volume
		targets = append(targets, fade{id: s.ID, from: s.Volume, to: int(math.Round(to))})
	}

	if err := d.fade(ctx, targets, dur); err != nil {
		return err
	}

	d.active = true
	return nil
}

// Restore brings ducked streams back to their original volume. Streams that
// appeared after Duck are left alone.
func (d *Ducker) Restore(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.mixer.SinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("listing streams: %w", err)
	}

	var targets []fade
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		if orig, ok := d.original[s.ID]; ok {
			targets = append(targets, fade{id: s.ID, from: s.Volume, to: orig})
		}
	}

	if err := d.fade(ctx, targets, dur); err != nil {
		return err
	}

	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelf(s SinkInput) bool {
	return slices.Contains(d.selfNames, s.AppName)
}

func (d *Ducker) fade(ctx context.Context, targets []fade, dur time.Duration) error {
	if len(targets) == 0 {
		return nil
	}

	if dur <= 0 {
		for _, t := range targets {
			if err := d.mixer.SetVolume(ctx, t.id, t.to); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}
		return nil
	}

	const minStep = 10 * time.Millisecond

	steps := max(int(dur/minStep), 1)
	step := dur / time.Duration(steps)

	for i := 0; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := d.mixer.SetVolume(ctx, t.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}

		if i < steps {
			time.Sleep(step)
		}
	}

	return nil
}

// Pactl drives PulseAudio or PipeWire through the pactl command.
type Pactl struct{}

func (Pactl) SinkInputs(ctx context.Context) ([]SinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return ParseSinkInputs(string(out)), nil
}

func (Pactl) SetVolume(ctx context.Context, id, percent int) error {
	percent = min(max(percent, 0), maxVolume)
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume",
		strconv.Itoa(id), fmt.Sprintf("%d%%", percent)).Run()
}

// ParseSinkInputs reads the output of `pactl list sink-inputs`.
func ParseSinkInputs(text string) []SinkInput {
	parts := strings.Split(text, "Sink Input #")
	if len(parts) <= 1 {
		return nil
	}

	var res []SinkInput
	for _, block := range parts[1:] {
		header, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		s := SinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			}

			// application.name = "Firefox"
			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				_, rest, _ := strings.Cut(line, `"`)
				s.AppName, _, _ = strings.Cut(rest, `"`)
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}

	return res
}
