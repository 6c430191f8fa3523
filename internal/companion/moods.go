package companion

import (
	"slices"
	"strings"
)

type Mood string

const (
	Happy    Mood = "happy"
	Sad      Mood = "sad"
	Excited  Mood = "excited"
	Anxious  Mood = "anxious"
	Focused  Mood = "focused"
	Relaxed  Mood = "relaxed"
	Creative Mood = "creative"
	Tired    Mood = "tired"
)

var Moods = []Mood{Happy, Sad, Excited, Anxious, Focused, Relaxed, Creative, Tired}

var moodModifiers = map[Mood]string{
	Happy:    "The user is feeling happy and upbeat. Match their positive energy with enthusiasm and cheerful suggestions.",
	Sad:      "The user is feeling sad. Be extra gentle, supportive, and offer comforting advice to help lift their spirits.",
	Excited:  "The user is very excited! Match their high energy with dynamic suggestions and enthusiastic responses.",
	Anxious:  "The user is feeling anxious. Provide calm, reassuring advice and suggest calming activities or approaches.",
	Focused:  "The user is in a focused state. Give clear, direct advice that supports their concentration and productivity.",
	Relaxed:  "The user is feeling relaxed. Maintain a calm, peaceful tone and suggest activities that preserve their tranquility.",
	Creative: "The user is in a creative mood. Encourage their imagination with innovative suggestions and artistic ideas.",
	Tired:    "The user is feeling tired. Suggest gentle, low-energy activities and be understanding of their fatigue.",
}

func (m Mood) Valid() bool {
	return slices.Contains(Moods, m)
}

// Modifier is the system prompt addition for the mood, empty if unknown.
func (m Mood) Modifier() string {
	return moodModifiers[m]
}

// FindMood returns the first mood named in text as a whole word.
func FindMood(text string) (Mood, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	for _, w := range words {
		if m := Mood(w); m.Valid() {
			return m, true
		}
	}
	return "", false
}
