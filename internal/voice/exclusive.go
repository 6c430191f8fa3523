package voice

import "sync"

type exclusive struct {
	Recognizer

	mu   sync.Mutex
	busy bool
	gen  uint64
}

// Exclusive wraps a recognizer shared by several engines so that only one
// session runs on the device at a time. A second Start while a session is
// open fails with ErrAlreadyListening.
func Exclusive(r Recognizer) Recognizer {
	return &exclusive{Recognizer: r}
}

func (x *exclusive) Start(cfg RecognitionConfig) (<-chan RecognitionEvent, error) {
	x.mu.Lock()
	if x.busy {
		x.mu.Unlock()
		return nil, ErrAlreadyListening
	}
	x.busy = true
	x.gen++
	gen := x.gen
	x.mu.Unlock()

	events, err := x.Recognizer.Start(cfg)
	if err != nil {
		x.release(gen)
		return nil, err
	}

	out := make(chan RecognitionEvent, 1)
	go func() {
		defer close(out)
		defer x.release(gen)

		first := true
		for ev := range events {
			if first {
				// the session is over for the caller once it has its event
				x.release(gen)
				out <- ev
				first = false
			}
		}
	}()

	return out, nil
}

func (x *exclusive) Available() bool {
	return available(x.Recognizer)
}

func (x *exclusive) release(gen uint64) {
	x.mu.Lock()
	if x.gen == gen {
		x.busy = false
	}
	x.mu.Unlock()
}
