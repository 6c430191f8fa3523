// Package stt turns 16 kHz mono PCM into text.
package stt

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNoAudio = errors.New("no audio samples provided")

// Transcriber is implemented by every speech to text backend.
type Transcriber interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error)
}

type Options struct {
	Language        string        // e.g. "auto", "en"
	TranslateToEn   bool          // translate non-EN to EN
	Threads         int           // <=0 => NumCPU()
	InitialPrompt   string        // optional prefix prompt
	TokenTimestamps bool          // per-token timestamps
	MaxTokens       uint          // 0 = no limit
	BeamSize        int           // >0 enables beam search
	Temperature     float32       // 0 = default
	Offset          time.Duration // start offset
	Duration        time.Duration // max duration
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string // detected or forced
}

// Empty reports whether the result carries no words.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Language maps a BCP 47 tag such as en-US to the two letter code the
// backends expect.
func Language(tag string) string {
	if tag == "" {
		return "auto"
	}
	lang, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(lang)
}
