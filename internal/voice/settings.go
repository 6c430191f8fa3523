package voice

import "fmt"

// Settings shape every utterance. The engine owns its copy; callers change it
// only through Engine.UpdateSettings.
type Settings struct {
	Rate   float64 `yaml:"rate" json:"rate"`
	Pitch  float64 `yaml:"pitch" json:"pitch"`
	Volume float64 `yaml:"volume" json:"volume"`
	Voice  string  `yaml:"voice,omitempty" json:"voice,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		Rate:   1.0,
		Pitch:  1.0,
		Volume: 0.8,
	}
}

func (s Settings) Validate() error {
	if s.Rate <= 0 || s.Rate > 10 {
		return fmt.Errorf("rate %.2f out of range (0, 10]", s.Rate)
	}
	if s.Pitch < 0 || s.Pitch > 2 {
		return fmt.Errorf("pitch %.2f out of range [0, 2]", s.Pitch)
	}
	if s.Volume < 0 || s.Volume > 1 {
		return fmt.Errorf("volume %.2f out of range [0, 1]", s.Volume)
	}
	return nil
}

// SettingsPatch is a partial update; nil fields keep their current value.
type SettingsPatch struct {
	Rate   *float64
	Pitch  *float64
	Volume *float64
	Voice  *string
}

func (s Settings) Apply(p SettingsPatch) Settings {
	if p.Rate != nil {
		s.Rate = *p.Rate
	}
	if p.Pitch != nil {
		s.Pitch = *p.Pitch
	}
	if p.Volume != nil {
		s.Volume = *p.Volume
	}
	if p.Voice != nil {
		s.Voice = *p.Voice
	}
	return s
}

func Float(v float64) *float64 { return &v }

func String(v string) *string { return &v }

// Enchanted returns the companion's signature voice: the defaults merged with
// p, then slowed a little and lifted in pitch.
func Enchanted(p SettingsPatch) Settings {
	s := DefaultSettings().Apply(p)
	s.Rate = 0.9
	s.Pitch = 1.1
	return s
}
