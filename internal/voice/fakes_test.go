package voice_test

import (
	"context"
	"sync"

	"lumos/internal/voice"
)

type fakeSynth struct {
	mu      sync.Mutex
	spoken  []voice.Utterance
	cancels int
	voices  []voice.Voice

	// calls with an index below blockN wait for ctx cancellation
	blockN  int
	fail    error
	started chan voice.Utterance
	release chan struct{}
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{started: make(chan voice.Utterance, 8)}
}

func (f *fakeSynth) Speak(ctx context.Context, u voice.Utterance) error {
	f.mu.Lock()
	idx := len(f.spoken)
	f.spoken = append(f.spoken, u)
	block := idx < f.blockN
	fail := f.fail
	release := f.release
	f.mu.Unlock()

	f.started <- u

	if fail != nil {
		return fail
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeSynth) CancelAll() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeSynth) Voices() []voice.Voice {
	return f.voices
}

func (f *fakeSynth) Cancels() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func (f *fakeSynth) Spoken() []voice.Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]voice.Utterance(nil), f.spoken...)
}

type fakeRecognizer struct {
	mu       sync.Mutex
	starts   int
	stops    int
	cfgs     []voice.RecognitionConfig
	ch       chan voice.RecognitionEvent
	startErr error
	started  chan struct{}

	// when set, Start signals entered and waits for gate to close
	gate    chan struct{}
	entered chan struct{}
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{started: make(chan struct{}, 8)}
}

func (f *fakeRecognizer) Start(cfg voice.RecognitionConfig) (<-chan voice.RecognitionEvent, error) {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.starts++
	f.cfgs = append(f.cfgs, cfg)
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.ch = make(chan voice.RecognitionEvent, 1)
	f.started <- struct{}{}
	return f.ch, nil
}

func (f *fakeRecognizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stops++
	if f.ch != nil {
		close(f.ch)
		f.ch = nil
	}
}

// emit delivers ev and ends the session.
func (f *fakeRecognizer) emit(ev voice.RecognitionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ch <- ev
	close(f.ch)
	f.ch = nil
}

// end closes the session without a result.
func (f *fakeRecognizer) end() {
	f.mu.Lock()
	defer f.mu.Unlock()

	close(f.ch)
	f.ch = nil
}

// active reports whether the device has a session open.
func (f *fakeRecognizer) active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch != nil
}

func (f *fakeRecognizer) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type offline struct {
	*fakeRecognizer
}

func (offline) Available() bool { return false }
