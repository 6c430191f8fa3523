// Package command maps spoken transcripts to a closed set of voice commands.
package command

import (
	"fmt"
	"strings"
)

type Intent string

const (
	Chat         Intent = "CHAT"
	Fashion      Intent = "FASHION"
	Productivity Intent = "PRODUCTIVITY"
	Mood         Intent = "MOOD"
	House        Intent = "HOUSE"
	Stop         Intent = "STOP"
	Help         Intent = "HELP"

	// None is returned when no trigger phrase matches.
	None Intent = ""
)

func (i Intent) String() string {
	if i == None {
		return "NONE"
	}
	return string(i)
}

// Entry binds an intent to its trigger phrases.
type Entry struct {
	Intent  Intent
	Phrases []string
}

// Lexicon is an ordered table of entries. Order is significant: Classify
// returns the first entry with a matching phrase, so specific commands come
// before the generic STOP and HELP entries.
type Lexicon struct {
	entries []Entry
}

// NewLexicon copies entries into a lexicon and validates it.
func NewLexicon(entries ...Entry) (*Lexicon, error) {
	l := &Lexicon{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		l.entries = append(l.entries, Entry{
			Intent:  e.Intent,
			Phrases: append([]string(nil), e.Phrases...),
		})
	}

	if err := l.Validate(); err != nil {
		return nil, err
	}

	return l, nil
}

var defaultLexicon = mustLexicon(
	Entry{Chat, []string{"lumos chat", "open chat", "talk to me"}},
	Entry{Fashion, []string{"accio fashion", "fashion advice", "style help"}},
	Entry{Productivity, []string{"tempus productivity", "help me focus", "task magic"}},
	Entry{Mood, []string{"revelio mood", "change mood", "mood magic"}},
	Entry{House, []string{"sorting hat", "change house", "house selection"}},
	Entry{Stop, []string{"silencio", "stop", "quiet"}},
	Entry{Help, []string{"help", "what can you do", "commands"}},
)

// DefaultLexicon returns the built-in spell table.
func DefaultLexicon() *Lexicon {
	return defaultLexicon
}

func mustLexicon(entries ...Entry) *Lexicon {
	l, err := NewLexicon(entries...)
	if err != nil {
		panic(err)
	}
	return l
}

// Validate checks that intents are unique, phrases are non-empty lowercase
// strings owned by a single intent, and that no phrase is shadowed: if a
// phrase of one intent contains a phrase of another, the containing (longer)
// phrase must belong to the earlier entry, otherwise it could never win.
func (l *Lexicon) Validate() error {
	seen := make(map[Intent]bool, len(l.entries))
	owner := make(map[string]int)

	for i, e := range l.entries {
		if e.Intent == None {
			return fmt.Errorf("entry %d: empty intent", i)
		}
		if seen[e.Intent] {
			return fmt.Errorf("duplicate intent %s", e.Intent)
		}
		seen[e.Intent] = true

		if len(e.Phrases) == 0 {
			return fmt.Errorf("intent %s has no phrases", e.Intent)
		}

		for _, p := range e.Phrases {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("intent %s: empty phrase", e.Intent)
			}
			if p != strings.ToLower(p) {
				return fmt.Errorf("intent %s: phrase %q is not lowercase", e.Intent, p)
			}
			if j, ok := owner[p]; ok && j != i {
				return fmt.Errorf("phrase %q shared by %s and %s", p, l.entries[j].Intent, e.Intent)
			}
			owner[p] = i
		}
	}

	for p, i := range owner {
		for q, j := range owner {
			if i == j || p == q {
				continue
			}
			// q is contained in p: p's entry must be consulted first.
			if strings.Contains(p, q) && i > j {
				return fmt.Errorf("phrase %q (%s) is shadowed by %q (%s)",
					p, l.entries[i].Intent, q, l.entries[j].Intent)
			}
		}
	}

	return nil
}

// Intents lists the intents in lookup order.
func (l *Lexicon) Intents() []Intent {
	out := make([]Intent, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Intent)
	}
	return out
}

// Phrases returns a copy of the trigger phrases for intent.
func (l *Lexicon) Phrases(intent Intent) []string {
	for _, e := range l.entries {
		if e.Intent == intent {
			return append([]string(nil), e.Phrases...)
		}
	}
	return nil
}
