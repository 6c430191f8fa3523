//go:build !whisper

package stt

import (
	"context"
	"errors"
)

var ErrWhisperNotBuilt = errors.New("whisper.cpp support not compiled in (build with -tags whisper)")

type Whisper struct{}

func NewWhisper(string) (*Whisper, error) {
	return nil, ErrWhisperNotBuilt
}

func (*Whisper) Close() error { return nil }

func (*Whisper) TranscribePCM(context.Context, []float32, Options) (Result, error) {
	return Result{}, ErrWhisperNotBuilt
}
