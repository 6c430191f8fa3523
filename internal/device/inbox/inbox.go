// Package inbox recognizes speech from audio files dropped into a directory,
// e.g. voice notes synced from a phone.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"lumos/internal/voice"
	"lumos/pkg/audioconv"
	"lumos/pkg/stt"
)

const processedSuffix = ".processed"

type Config struct {
	Dir string
	// Poll is the directory scan interval.
	Poll time.Duration
	// Wait bounds one listen session; no file within it means no speech.
	Wait time.Duration

	Logger *slog.Logger
}

type Recognizer struct {
	dir    string
	poll   time.Duration
	wait   time.Duration
	stt    stt.Transcriber
	logger *slog.Logger

	mu  sync.Mutex
	cur *session
	// files a session is transcribing; a later session skips them
	claimed map[string]bool
}

type session struct {
	cancel context.CancelFunc
}

func New(cfg Config, t stt.Transcriber) (*Recognizer, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating inbox dir: %w", err)
	}

	r := &Recognizer{
		dir:    cfg.Dir,
		poll:   cfg.Poll,
		wait:   cfg.Wait,
		stt:     t,
		logger:  cfg.Logger,
		claimed: make(map[string]bool),
	}
	if r.poll <= 0 {
		r.poll = 500 * time.Millisecond
	}
	if r.wait <= 0 {
		r.wait = 30 * time.Second
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r, nil
}

func (r *Recognizer) Start(cfg voice.RecognitionConfig) (<-chan voice.RecognitionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cur != nil {
		return nil, voice.ErrAlreadyListening
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.wait)
	s := &session{cancel: cancel}
	r.cur = s

	events := make(chan voice.RecognitionEvent, 1)
	go func() {
		ev, ok := r.next(ctx, stt.Language(cfg.Language))
		r.release(s)
		if ok {
			events <- ev
		}
		close(events)
	}()

	return events, nil
}

func (r *Recognizer) Stop() {
	r.mu.Lock()
	s := r.cur
	r.mu.Unlock()

	if s != nil {
		r.release(s)
	}
}

// release ends s. A session stopped earlier may finish after a newer one
// started; it must leave the newer one alone.
func (r *Recognizer) release(s *session) {
	r.mu.Lock()
	if r.cur == s {
		r.cur = nil
	}
	r.mu.Unlock()

	s.cancel()
}

func (r *Recognizer) next(ctx context.Context, lang string) (voice.RecognitionEvent, bool) {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		path, err := r.oldest()
		if err != nil {
			return voice.ErrorEvent("audio-capture", err.Error()), true
		}
		if path != "" {
			return r.transcribe(ctx, path, lang)
		}

		select {
		case <-ctx.Done():
			return voice.RecognitionEvent{}, false
		case <-ticker.C:
		}
	}
}

// oldest returns the oldest unprocessed audio file, or "".
func (r *Recognizer) oldest() (string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return "", fmt.Errorf("reading inbox: %w", err)
	}

	var (
		best    string
		bestMod time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !slices.Contains(audioconv.Extensions, ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		if r.isClaimed(path) {
			continue
		}
		if best == "" || info.ModTime().Before(bestMod) {
			best = path
			bestMod = info.ModTime()
		}
	}

	return best, nil
}

func (r *Recognizer) isClaimed(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimed[path]
}

func (r *Recognizer) transcribe(ctx context.Context, path, lang string) (voice.RecognitionEvent, bool) {
	r.mu.Lock()
	r.claimed[path] = true
	r.mu.Unlock()

	defer func() {
		if err := os.Rename(path, path+processedSuffix); err != nil {
			r.logger.Warn("marking inbox file", "path", path, "err", err)
		}
		r.mu.Lock()
		delete(r.claimed, path)
		r.mu.Unlock()
	}()

	r.logger.Info("inbox file", "path", path)

	pcm, err := audioconv.DecodeFile(path, audioconv.Options{})
	if err != nil {
		return voice.ErrorEvent("audio-capture", fmt.Sprintf("%s: %v", filepath.Base(path), err)), true
	}
	if len(pcm) == 0 {
		return voice.RecognitionEvent{}, false
	}

	res, err := r.stt.TranscribePCM(ctx, pcm, stt.Options{Language: lang})
	if ctx.Err() != nil {
		return voice.RecognitionEvent{}, false
	}
	if err != nil {
		return voice.ErrorEvent("transcription", err.Error()), true
	}
	if res.Empty() {
		return voice.RecognitionEvent{}, false
	}

	return voice.ResultEvent(strings.TrimSpace(res.Text), 1.0), true
}
