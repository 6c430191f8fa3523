// Package espeak speaks through libespeak-ng. Build with -tags espeak.
package espeak

import (
	"math"
	"strings"
)

const baseWPM = 175

// Params are the native espeak-ng parameter values for one utterance.
type Params struct {
	WPM    int // espeakRATE, 80..450
	Pitch  int // espeakPITCH, 0..100
	Volume int // espeakVOLUME, 0..200 with 100 as normal
}

// ParamsFor maps engine settings (rate multiplier, pitch 0..2, volume 0..1)
// onto espeak-ng's scales.
func ParamsFor(rate, pitch, volume float64) Params {
	return Params{
		WPM:    clampInt(int(math.Round(rate*baseWPM)), 80, 450),
		Pitch:  clampInt(int(math.Round(pitch*50)), 0, 100),
		Volume: clampInt(int(math.Round(volume*100)), 0, 200),
	}
}

// english reports whether an espeak language code belongs to the engine's
// language family.
func english(lang string) bool {
	return lang == "en" || strings.HasPrefix(lang, "en-")
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
