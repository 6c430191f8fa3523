package voice

import "context"

// Language is the only recognition language the engine asks for.
const Language = "en-US"

// Utterance is one unit of text handed to a Synthesizer together with the
// settings captured when Speak was called.
type Utterance struct {
	Text   string
	Rate   float64
	Pitch  float64
	Volume float64
	Voice  string
}

// Voice describes a synthesis voice offered by a device.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Default  bool   `json:"default,omitempty"`
}

// Synthesizer is the speech-output device.
//
// Speak blocks until the utterance completes, fails, or ctx is done. It must
// not start playback when ctx is already done and must return promptly once
// ctx is cancelled. CancelAll stops whatever the device is playing.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
	CancelAll()
}

// VoiceLister is implemented by synthesizers that can enumerate voices.
type VoiceLister interface {
	Voices() []Voice
}

// Prober is implemented by devices whose availability changes at runtime.
type Prober interface {
	Available() bool
}

// RecognitionConfig configures one capture session.
type RecognitionConfig struct {
	Continuous     bool
	InterimResults bool
	Language       string
}

// Transcript is the top candidate of a recognition session.
type Transcript struct {
	Text       string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// RecognitionEvent carries exactly one of Result or Err.
type RecognitionEvent struct {
	Result *Transcript
	Err    *RecognitionError
}

func ResultEvent(text string, confidence float64) RecognitionEvent {
	return RecognitionEvent{Result: &Transcript{Text: text, Confidence: confidence}}
}

func ErrorEvent(code, message string) RecognitionEvent {
	return RecognitionEvent{Err: &RecognitionError{Code: code, Message: message}}
}

// Recognizer is the speech-input device.
//
// Start begins a session and returns a channel that delivers at most one
// event and is closed when the session ends; a close without an event means
// the session ended with nothing heard. Stop ends the current session early.
type Recognizer interface {
	Start(cfg RecognitionConfig) (<-chan RecognitionEvent, error)
	Stop()
}

func available(dev any) bool {
	if dev == nil {
		return false
	}
	if p, ok := dev.(Prober); ok {
		return p.Available()
	}
	return true
}
