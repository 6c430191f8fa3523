package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lumos/internal/voice"
)

var errPeerGone = errors.New("bridge peer disconnected")

type peer struct {
	conn *websocket.Conn

	// gorilla allows one concurrent writer
	wmu sync.Mutex
}

func (p *peer) send(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	p.wmu.Lock()
	defer p.wmu.Unlock()

	_ = p.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// Bridge is both the synthesizer and the recognizer for a single connected
// browser. A newer connection replaces the previous one.
type Bridge struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	peer    *peer
	voices  []voice.Voice
	nextID  uint64
	waiters map[uint64]chan Message
	session chan voice.RecognitionEvent
}

func New(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{
		upgrader: websocket.Upgrader{
			// the page is served from wherever the user opens it
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		waiters: make(map[uint64]chan Message),
	}
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("bridge upgrade failed", "err", err)
		return
	}

	p := &peer{conn: conn}

	b.mu.Lock()
	old := b.peer
	b.peer = p
	b.mu.Unlock()

	if old != nil {
		b.logger.Info("bridge peer replaced", "remote", r.RemoteAddr)
		old.conn.Close()
		b.failPending()
	} else {
		b.logger.Info("bridge peer connected", "remote", r.RemoteAddr)
	}

	b.readLoop(p)
}

func (b *Bridge) readLoop(p *peer) {
	defer b.drop(p)

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Debug("bridge read", "err", err)
			}
			return
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			b.logger.Warn("bridge: bad frame", "err", err)
			continue
		}

		b.dispatch(m)
	}
}

func (b *Bridge) dispatch(m Message) {
	switch m.Kind {
	case KindSpoken, KindSpeakError:
		b.mu.Lock()
		w, ok := b.waiters[m.ID]
		delete(b.waiters, m.ID)
		b.mu.Unlock()
		if ok {
			w <- m
		}

	case KindVoices:
		b.mu.Lock()
		b.voices = append([]voice.Voice(nil), m.Voices...)
		b.mu.Unlock()

	case KindResult:
		b.settle(voice.ResultEvent(m.Transcript, m.Confidence), true)

	case KindRecognitionError:
		b.settle(voice.ErrorEvent(m.Code, m.Error), true)

	case KindEnd:
		b.settle(voice.RecognitionEvent{}, false)

	default:
		b.logger.Warn("bridge: unknown frame", "kind", m.Kind)
	}
}

// settle ends the listen session, delivering ev if deliver is set.
func (b *Bridge) settle(ev voice.RecognitionEvent, deliver bool) {
	b.mu.Lock()
	s := b.session
	b.session = nil
	b.mu.Unlock()

	if s == nil {
		return
	}
	if deliver {
		s <- ev
	}
	close(s)
}

// drop forgets p and fails everything that was waiting on it.
func (b *Bridge) drop(p *peer) {
	p.conn.Close()

	b.mu.Lock()
	if b.peer != p {
		b.mu.Unlock()
		return
	}
	b.peer = nil
	b.voices = nil
	b.mu.Unlock()

	b.logger.Info("bridge peer disconnected")
	b.failPending()
}

func (b *Bridge) failPending() {
	b.mu.Lock()
	waiters := b.waiters
	b.waiters = make(map[uint64]chan Message)
	b.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	b.settle(voice.ErrorEvent("network", errPeerGone.Error()), true)
}

func (b *Bridge) current() *peer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peer
}

func (b *Bridge) Available() bool {
	return b.current() != nil
}

// Voices is the list the peer last reported.
func (b *Bridge) Voices() []voice.Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]voice.Voice(nil), b.voices...)
}

func (b *Bridge) Speak(ctx context.Context, u voice.Utterance) error {
	b.mu.Lock()
	p := b.peer
	if p == nil {
		b.mu.Unlock()
		return voice.ErrDeviceUnavailable
	}
	b.nextID++
	id := b.nextID
	w := make(chan Message, 1)
	b.waiters[id] = w
	b.mu.Unlock()

	pitch, volume := u.Pitch, u.Volume
	err := p.send(Message{
		Kind:   KindSpeak,
		ID:     id,
		Text:   u.Text,
		Rate:   u.Rate,
		Pitch:  &pitch,
		Volume: &volume,
		Voice:  u.Voice,
	})
	if err != nil {
		b.forget(id)
		return &voice.PlaybackError{Detail: "sending to peer", Err: err}
	}

	select {
	case m, ok := <-w:
		if !ok {
			return &voice.PlaybackError{Detail: "peer disconnected", Err: errPeerGone}
		}
		if m.Kind == KindSpeakError {
			return &voice.PlaybackError{Detail: fmt.Sprintf("%s: %s", m.Code, m.Error)}
		}
		return nil
	case <-ctx.Done():
		b.forget(id)
		_ = p.send(Message{Kind: KindCancel, ID: id})
		return ctx.Err()
	}
}

func (b *Bridge) forget(id uint64) {
	b.mu.Lock()
	delete(b.waiters, id)
	b.mu.Unlock()
}

// CancelAll asks the peer to flush its speech queue.
func (b *Bridge) CancelAll() {
	if p := b.current(); p != nil {
		if err := p.send(Message{Kind: KindCancel}); err != nil {
			b.logger.Warn("bridge cancel", "err", err)
		}
	}
}

func (b *Bridge) Start(cfg voice.RecognitionConfig) (<-chan voice.RecognitionEvent, error) {
	b.mu.Lock()
	p := b.peer
	if p == nil {
		b.mu.Unlock()
		return nil, voice.ErrDeviceUnavailable
	}
	if b.session != nil {
		b.mu.Unlock()
		return nil, voice.ErrAlreadyListening
	}
	s := make(chan voice.RecognitionEvent, 1)
	b.session = s
	b.mu.Unlock()

	err := p.send(Message{
		Kind:           KindListen,
		Language:       cfg.Language,
		Continuous:     cfg.Continuous,
		InterimResults: cfg.InterimResults,
	})
	if err != nil {
		b.mu.Lock()
		if b.session == s {
			b.session = nil
		}
		b.mu.Unlock()
		return nil, fmt.Errorf("sending to peer: %w", err)
	}

	return s, nil
}

// Stop ends the session locally and tells the peer to stop recognizing.
func (b *Bridge) Stop() {
	b.settle(voice.RecognitionEvent{}, false)
	if p := b.current(); p != nil {
		if err := p.send(Message{Kind: KindStopListen}); err != nil {
			b.logger.Warn("bridge stop", "err", err)
		}
	}
}

// Serve runs an http server with the bridge mounted on /ws until ctx ends.
func (b *Bridge) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", b)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	b.logger.Info("bridge listening", "addr", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("bridge: %w", err)
	}
	return nil
}
