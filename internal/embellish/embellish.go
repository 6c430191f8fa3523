// Package embellish decorates outgoing speech text with pauses and sparkles.
package embellish

import (
	"regexp"
	"strings"
)

const (
	PauseMarker   = "…"
	SparkleMarker = "✨"
	StarMarker    = "🌟"
)

var magicWordRe = regexp.MustCompile(`(?i)magic|spell|enchant`)

// Embellish lengthens sentence boundaries, wraps magic words in sparkles and
// frames the whole text with stars. Word content is never altered.
func Embellish(text string) string {
	out := strings.ReplaceAll(text, ".", ". "+PauseMarker)
	out = strings.ReplaceAll(out, "!", "! "+PauseMarker)
	out = magicWordRe.ReplaceAllString(out, SparkleMarker+" ${0} "+SparkleMarker)

	return StarMarker + " " + out + " " + StarMarker
}
