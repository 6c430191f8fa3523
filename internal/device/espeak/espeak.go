//go:build espeak

package espeak

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
lumos_init(void)
{
	return espeak_Initialize(AUDIO_OUTPUT_PLAYBACK, 500, NULL, 0);
}

static int
lumos_say(const char *text, const char *voice, int wpm, int pitch, int volume)
{
	if (!text)
	{ return -1; }

	if (voice && *voice)
	{
		espeak_SetVoiceByName(voice);
	}
	else
	{
		espeak_VOICE specs;
		memset(&specs, 0, sizeof(specs));
		specs.languages = "en-us";
		espeak_SetVoiceByProperties(&specs);
	}

	espeak_SetParameter(espeakRATE, wpm, 0);
	espeak_SetParameter(espeakPITCH, pitch, 0);
	espeak_SetParameter(espeakVOLUME, volume, 0);

	int rc = espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	if (rc != EE_OK)
	{ return rc; }

	return espeak_Synchronize();
}

static const espeak_VOICE *
lumos_voice_at(const espeak_VOICE **list, int i)
{
	return list[i];
}

// languages is a list of (priority byte, language string) pairs
static const char *
lumos_voice_lang(const espeak_VOICE *v)
{
	return v->languages + 1;
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"lumos/internal/voice"
)

type Synthesizer struct {
	// libespeak-ng holds global state; one utterance at a time
	mu sync.Mutex
}

func New() (*Synthesizer, error) {
	if rc := C.lumos_init(); rc < 0 {
		return nil, fmt.Errorf("espeak_Initialize failed: %d", int(rc))
	}
	return &Synthesizer{}, nil
}

func (s *Synthesizer) Close() error {
	C.espeak_Terminate()
	return nil
}

func (s *Synthesizer) Speak(ctx context.Context, u voice.Utterance) error {
	if u.Text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	p := ParamsFor(u.Rate, u.Pitch, u.Volume)

	ctext := C.CString(u.Text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(u.Voice)
	defer C.free(unsafe.Pointer(cvoice))

	done := make(chan C.int, 1)
	go func() {
		done <- C.lumos_say(ctext, cvoice, C.int(p.WPM), C.int(p.Pitch), C.int(p.Volume))
	}()

	select {
	case rc := <-done:
		if rc != 0 {
			return &voice.PlaybackError{Detail: fmt.Sprintf("espeak_Synth failed: %d", int(rc))}
		}
		return nil
	case <-ctx.Done():
		C.espeak_Cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Synthesizer) CancelAll() {
	C.espeak_Cancel()
}

func (s *Synthesizer) Voices() []voice.Voice {
	list := C.espeak_ListVoices(nil)
	if list == nil {
		return nil
	}

	var out []voice.Voice
	for i := 0; ; i++ {
		v := C.lumos_voice_at(list, C.int(i))
		if v == nil {
			break
		}
		lang := C.GoString(C.lumos_voice_lang(v))
		if !english(lang) {
			continue
		}
		name := C.GoString(v.name)
		out = append(out, voice.Voice{
			ID:       name,
			Name:     name,
			Language: voice.Language,
			Default:  lang == "en-us",
		})
	}
	return out
}
