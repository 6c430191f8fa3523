package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "log/slog"

	"lumos/internal/ipc"
	"lumos/internal/prefs"
	"lumos/internal/session"
	"lumos/internal/voice"
)

var errNoText = errors.New("no text given")

type daemon struct {
	engine *voice.Engine
	ctl    *session.Controller
	prefs  *prefs.Store
}

func (d *daemon) handle(ctx context.Context, req ipc.Request) ipc.Response {
	log.Debug("Control request", "cmd", req.Cmd)

	switch req.Cmd {
	case ipc.CmdListen:
		out, err := d.ctl.RunOnce(ctx)
		if err != nil {
			log.Warn("Listen failed", "err", err)
			return ipc.Fail(err)
		}
		return outcome(out)

	case ipc.CmdSay:
		if strings.TrimSpace(req.Text) == "" {
			return ipc.Fail(errNoText)
		}
		out, err := d.ctl.Handle(ctx, req.Text)
		if err != nil {
			return ipc.Fail(err)
		}
		return outcome(out)

	case ipc.CmdSpeak:
		if strings.TrimSpace(req.Text) == "" {
			return ipc.Fail(errNoText)
		}
		if err := d.engine.Speak(ctx, req.Text, true); err != nil {
			return ipc.Fail(err)
		}
		return ipc.Response{OK: true}

	case ipc.CmdStop:
		d.engine.StopSpeaking()
		d.engine.StopListening()
		return ipc.Response{OK: true}

	case ipc.CmdVoices:
		return ipc.Response{OK: true, Voices: d.engine.Voices()}

	case ipc.CmdStatus:
		return ipc.Response{OK: true, Status: d.status()}

	case ipc.CmdSettings:
		patch := voice.SettingsPatch{
			Rate:   req.Rate,
			Pitch:  req.Pitch,
			Volume: req.Volume,
			Voice:  req.Voice,
		}
		if err := d.engine.UpdateSettings(patch); err != nil {
			return ipc.Fail(err)
		}
		s := d.engine.Settings()
		if _, err := d.prefs.Update(func(p *prefs.Prefs) { p.Voice = s }); err != nil {
			log.Warn("Failed to save voice settings", "err", err)
		}
		return ipc.Response{OK: true, Status: d.status()}

	case ipc.CmdReset:
		if err := d.prefs.Reset(); err != nil {
			return ipc.Fail(err)
		}
		if err := d.engine.ReplaceSettings(d.prefs.Get().Voice); err != nil {
			return ipc.Fail(err)
		}
		log.Info("Preferences reset")
		return ipc.Response{OK: true, Status: d.status()}

	default:
		log.Warn("Unknown command", "cmd", req.Cmd)
		return ipc.Fail(fmt.Errorf("unknown command %q", req.Cmd))
	}
}

func (d *daemon) status() *ipc.Status {
	p := d.prefs.Get()
	return &ipc.Status{
		VoiceSupported:       d.engine.VoiceSupported(),
		RecognitionSupported: d.engine.RecognitionSupported(),
		Speaking:             d.engine.Speaking(),
		Listening:            d.engine.Listening(),
		Settings:             d.engine.Settings(),
		House:                p.House,
		Mood:                 p.Mood,
	}
}

func outcome(out session.Outcome) ipc.Response {
	return ipc.Response{
		OK:         true,
		Transcript: out.Transcript,
		Intent:     string(out.Intent),
		Reply:      out.Reply,
	}
}
