// Package bridge exposes a browser's Web Speech engine to the daemon over a
// websocket. The browser page is the peer: it speaks the utterances we send
// and streams back what it hears.
package bridge

import "lumos/internal/voice"

type Kind string

const (
	// daemon -> peer
	KindSpeak      Kind = "speak"
	KindCancel     Kind = "cancel"
	KindListen     Kind = "listen"
	KindStopListen Kind = "stop_listen"

	// peer -> daemon
	KindSpoken           Kind = "spoken"
	KindSpeakError       Kind = "speak_error"
	KindResult           Kind = "result"
	KindRecognitionError Kind = "recognition_error"
	KindEnd              Kind = "end"
	KindVoices           Kind = "voices"
)

// Message is one JSON frame in either direction.
type Message struct {
	Kind Kind   `json:"kind"`
	ID   uint64 `json:"id,omitempty"`

	// speak; a zero volume is meaningful
	Text   string   `json:"text,omitempty"`
	Rate   float64  `json:"rate,omitempty"`
	Pitch  *float64 `json:"pitch,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	Voice  string   `json:"voice,omitempty"`

	// listen
	Language       string `json:"lang,omitempty"`
	Continuous     bool   `json:"continuous,omitempty"`
	InterimResults bool   `json:"interimResults,omitempty"`

	// result
	Transcript string  `json:"transcript,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// errors
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`

	Voices []voice.Voice `json:"voices,omitempty"`
}
