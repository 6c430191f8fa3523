package voice

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceUnavailable = errors.New("voice device unavailable")
	ErrAlreadyListening  = errors.New("already listening")
	ErrSpeechCancelled   = errors.New("speech cancelled")
	ErrListenStopped     = errors.New("listening stopped")
	ErrNoSpeechDetected  = errors.New("no speech detected")
)

// PlaybackError is returned when the output device fails mid-utterance.
type PlaybackError struct {
	Detail string
	Err    error
}

func (e *PlaybackError) Error() string {
	if e.Detail == "" && e.Err != nil {
		return fmt.Sprintf("playback error: %v", e.Err)
	}
	return fmt.Sprintf("playback error: %s", e.Detail)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// RecognitionError is reported by the input device for a failed session.
type RecognitionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RecognitionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("speech recognition error: %s", e.Code)
	}
	return fmt.Sprintf("speech recognition error: %s: %s", e.Code, e.Message)
}
