// Package ipc is the daemon's control socket: one JSON request and one JSON
// response per connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"lumos/internal/voice"
)

const DefaultSocketPath = "/tmp/lumos.sock"

const (
	CmdListen   = "listen"   // run one voice session
	CmdSay      = "say"      // handle typed text as if it was heard
	CmdSpeak    = "speak"    // speak text as is
	CmdStop     = "stop"     // stop speaking and listening
	CmdVoices   = "voices"   // list output voices
	CmdStatus   = "status"   // device and session state
	CmdSettings = "settings" // patch voice settings
	CmdReset    = "reset"    // restore default preferences
)

type Request struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`

	Rate   *float64 `json:"rate,omitempty"`
	Pitch  *float64 `json:"pitch,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	Voice  *string  `json:"voice,omitempty"`
}

type Status struct {
	VoiceSupported       bool           `json:"voice_supported"`
	RecognitionSupported bool           `json:"recognition_supported"`
	Speaking             bool           `json:"speaking"`
	Listening            bool           `json:"listening"`
	Settings             voice.Settings `json:"settings"`
	House                string         `json:"house,omitempty"`
	Mood                 string         `json:"mood,omitempty"`
}

type Response struct {
	OK         bool          `json:"ok"`
	Error      string        `json:"error,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
	Intent     string        `json:"intent,omitempty"`
	Reply      string        `json:"reply,omitempty"`
	Voices     []voice.Voice `json:"voices,omitempty"`
	Status     *Status       `json:"status,omitempty"`
}

func Fail(err error) Response {
	return Response{Error: err.Error()}
}

type Handler func(ctx context.Context, req Request) Response

// Serve accepts connections on a unix socket at path until ctx is done.
// Every request gets its own goroutine and a context cancelled on shutdown.
func Serve(ctx context.Context, path string, h Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Info("control socket ready", "path", path)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				_ = os.Remove(path)
				return nil
			}
			logger.Warn("accept", "err", err)
			continue
		}
		go handleConn(ctx, conn, h, logger)
	}
}

func handleConn(ctx context.Context, conn net.Conn, h Handler, logger *slog.Logger) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		logger.Warn("bad control request", "err", err)
		_ = json.NewEncoder(conn).Encode(Fail(fmt.Errorf("decoding request: %w", err)))
		return
	}

	logger.Debug("control request", "cmd", req.Cmd)

	resp := h(ctx, req)

	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		logger.Warn("writing control response", "err", err)
	}
}

// Send delivers one request and waits for the daemon's answer.
func Send(ctx context.Context, path string, req Request) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("sending: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("reading reply: %w", err)
	}
	if !resp.OK && resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
