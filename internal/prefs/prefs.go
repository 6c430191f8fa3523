// Package prefs persists the user's companion preferences as a yaml file.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"lumos/internal/voice"
)

type Prefs struct {
	House        string         `yaml:"house"`
	Mood         string         `yaml:"mood"`
	VoiceEnabled bool           `yaml:"voice_enabled"`
	Theme        string         `yaml:"theme"`
	Voice        voice.Settings `yaml:"voice"`
}

func Defaults() Prefs {
	return Prefs{
		House:        "gryffindor",
		Mood:         "happy",
		VoiceEnabled: true,
		Theme:        "dark",
		Voice:        voice.Enchanted(voice.SettingsPatch{}),
	}
}

// Store keeps the current preferences in memory and writes every change
// through to its file. A Store with an empty path never touches disk.
type Store struct {
	path string

	mu  sync.Mutex
	cur Prefs
}

// Open reads path over the defaults. A missing file is not an error.
func Open(path string) (*Store, error) {
	s := &Store{path: path, cur: Defaults()}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading prefs: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.cur); err != nil {
		return nil, fmt.Errorf("parsing prefs: %w", err)
	}
	if err := s.cur.Voice.Validate(); err != nil {
		return nil, fmt.Errorf("prefs voice: %w", err)
	}

	return s, nil
}

func (s *Store) Get() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Update applies fn to a copy and saves it. On a save failure the in-memory
// value is left unchanged.
func (s *Store) Update(fn func(*Prefs)) (Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	fn(&next)

	if err := s.save(next); err != nil {
		return s.cur, err
	}
	s.cur = next
	return next, nil
}

func (s *Store) Reset() error {
	_, err := s.Update(func(p *Prefs) { *p = Defaults() })
	return err
}

func (s *Store) save(p Prefs) error {
	if s.path == "" {
		return nil
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding prefs: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating prefs dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing prefs: %w", err)
	}
	return nil
}
