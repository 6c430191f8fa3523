package command

import "strings"

// Classify returns the first intent, in lexicon order, that owns a phrase
// contained in the lowercased transcript. It returns None when nothing
// matches.
func (l *Lexicon) Classify(transcript string) Intent {
	text := strings.ToLower(transcript)
	if strings.TrimSpace(text) == "" {
		return None
	}

	for _, e := range l.entries {
		for _, p := range e.Phrases {
			if strings.Contains(text, p) {
				return e.Intent
			}
		}
	}

	return None
}

// Classify runs the default lexicon.
func Classify(transcript string) Intent {
	return defaultLexicon.Classify(transcript)
}
