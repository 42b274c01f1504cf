package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/cbegin/midiroll-go/internal/effects"
	"github.com/cbegin/midiroll-go/internal/lfo"
	"github.com/cbegin/midiroll-go/internal/synth"
)

// Config holds application configuration.
type Config struct {
	Audio AudioConfig `mapstructure:"audio"`
	Synth SynthConfig `mapstructure:"synth"`
	Roll  RollConfig  `mapstructure:"roll"`
	UI    UIConfig    `mapstructure:"ui"`
	Log   LogConfig   `mapstructure:"log"`
}

// AudioConfig holds output settings. Volumes are linear gains.
type AudioConfig struct {
	SampleRate   int     `mapstructure:"sample_rate"`
	MasterVolume float64 `mapstructure:"master_volume"`
	MIDIVolume   float64 `mapstructure:"midi_volume"`
	AudioVolume  float64 `mapstructure:"audio_volume"`
}

// SynthConfig configures the note synth. Times are seconds.
type SynthConfig struct {
	Waveform string   `mapstructure:"waveform"`
	Voices   int      `mapstructure:"voices"`
	Attack   float64  `mapstructure:"attack"`
	Decay    float64  `mapstructure:"decay"`
	Sustain  float64  `mapstructure:"sustain"`
	Release  float64  `mapstructure:"release"`
	Effects  []string `mapstructure:"effects"`

	VibratoDepth float64 `mapstructure:"vibrato_depth"` // semitones
	VibratoRate  float64 `mapstructure:"vibrato_rate"`  // Hz
	VibratoShape string  `mapstructure:"vibrato_shape"`
}

type RollConfig struct {
	NoteHeight      int     `mapstructure:"note_height"`
	PixelsPerSecond float64 `mapstructure:"pixels_per_second"`
	FollowPlayhead  bool    `mapstructure:"follow_playhead"`
}

type UIConfig struct {
	WindowWidth  int     `mapstructure:"window_width"`
	WindowHeight int     `mapstructure:"window_height"`
	SeekStep     float64 `mapstructure:"seek_step"`
	StartDir     string  `mapstructure:"start_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Path returns the config file location: $MIDIROLL_CONFIG, else
// ~/.config/midiroll/config.toml.
func Path() string {
	if p := os.Getenv("MIDIROLL_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "midiroll", "config.toml")
}

func setDefaults(v *viper.Viper) {
	sp := synth.DefaultParams()
	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("audio.master_volume", 1.0)
	v.SetDefault("audio.midi_volume", 0.6)
	v.SetDefault("audio.audio_volume", 1.0)
	v.SetDefault("synth.waveform", sp.Waveform.String())
	v.SetDefault("synth.voices", sp.Voices)
	v.SetDefault("synth.attack", sp.Attack)
	v.SetDefault("synth.decay", sp.Decay)
	v.SetDefault("synth.sustain", sp.Sustain)
	v.SetDefault("synth.release", sp.Release)
	v.SetDefault("synth.effects", []string{"reverb 0.5,0.6,0.15"})
	v.SetDefault("synth.vibrato_depth", sp.VibratoDepth)
	v.SetDefault("synth.vibrato_rate", sp.VibratoRate)
	v.SetDefault("synth.vibrato_shape", sp.VibratoShape.String())
	v.SetDefault("roll.note_height", 20)
	v.SetDefault("roll.pixels_per_second", 120.0)
	v.SetDefault("roll.follow_playhead", true)
	v.SetDefault("ui.window_width", 1100)
	v.SetDefault("ui.window_height", 720)
	v.SetDefault("ui.seek_step", 5.0)
	v.SetDefault("ui.start_dir", ".")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from Path() and env. Env var overrides use prefix
// MIDIROLL_, e.g. MIDIROLL_AUDIO_MIDI_VOLUME. A missing default config file is
// not an error; a missing $MIDIROLL_CONFIG file is.
func Load() (Config, error) {
	if p := os.Getenv("MIDIROLL_CONFIG"); p != "" {
		return LoadFile(p)
	}
	return load(Path(), true)
}

// LoadFile reads configuration from path and env.
func LoadFile(path string) (Config, error) {
	return load(path, false)
}

func load(path string, optional bool) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetConfigFile(path)

	v.SetEnvPrefix("MIDIROLL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case optional && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values the player cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d out of range", c.Audio.SampleRate))
	}
	for name, vol := range map[string]float64{
		"audio.master_volume": c.Audio.MasterVolume,
		"audio.midi_volume":   c.Audio.MIDIVolume,
		"audio.audio_volume":  c.Audio.AudioVolume,
	} {
		if vol < 0 || vol > 2 {
			errs = append(errs, fmt.Errorf("%s %.2f out of range [0, 2]", name, vol))
		}
	}
	if _, err := synth.ParseWaveform(c.Synth.Waveform); err != nil {
		errs = append(errs, fmt.Errorf("synth.waveform: %w", err))
	}
	if c.Synth.Voices < 1 || c.Synth.Voices > 64 {
		errs = append(errs, fmt.Errorf("synth.voices %d out of range [1, 64]", c.Synth.Voices))
	}
	if c.Synth.Attack < 0 || c.Synth.Decay < 0 || c.Synth.Release < 0 {
		errs = append(errs, errors.New("synth envelope times must not be negative"))
	}
	if c.Synth.Sustain < 0 || c.Synth.Sustain > 1 {
		errs = append(errs, fmt.Errorf("synth.sustain %.2f out of range [0, 1]", c.Synth.Sustain))
	}
	if c.Synth.VibratoDepth < 0 || c.Synth.VibratoDepth > 2 {
		errs = append(errs, fmt.Errorf("synth.vibrato_depth %.2f out of range [0, 2]", c.Synth.VibratoDepth))
	}
	if c.Synth.VibratoRate < 0 || c.Synth.VibratoRate > 20 {
		errs = append(errs, fmt.Errorf("synth.vibrato_rate %.2f out of range [0, 20]", c.Synth.VibratoRate))
	}
	if _, err := lfo.ParseShape(c.Synth.VibratoShape); err != nil {
		errs = append(errs, fmt.Errorf("synth.vibrato_shape: %w", err))
	}
	for _, spec := range c.Synth.Effects {
		if _, err := effects.Parse(spec, c.Audio.SampleRate); err != nil {
			errs = append(errs, fmt.Errorf("synth.effects: %w", err))
		}
	}
	if c.Roll.NoteHeight < 4 {
		errs = append(errs, fmt.Errorf("roll.note_height %d too small", c.Roll.NoteHeight))
	}
	if c.Roll.PixelsPerSecond <= 0 {
		errs = append(errs, errors.New("roll.pixels_per_second must be positive"))
	}
	if c.UI.SeekStep <= 0 {
		errs = append(errs, errors.New("ui.seek_step must be positive"))
	}
	return errors.Join(errs...)
}

// SynthParams converts the synth section to engine parameters.
func (c Config) SynthParams() synth.Params {
	p := synth.DefaultParams()
	if w, err := synth.ParseWaveform(c.Synth.Waveform); err == nil {
		p.Waveform = w
	}
	p.Voices = c.Synth.Voices
	p.Attack = c.Synth.Attack
	p.Decay = c.Synth.Decay
	p.Sustain = c.Synth.Sustain
	p.Release = c.Synth.Release
	p.VibratoDepth = c.Synth.VibratoDepth
	p.VibratoRate = c.Synth.VibratoRate
	if shape, err := lfo.ParseShape(c.Synth.VibratoShape); err == nil {
		p.VibratoShape = shape
	}
	return p
}

// SaveVolumes writes the audio volumes back to the config file, keeping the
// rest of its contents. Used by the UIs to persist mixer sliders.
func SaveVolumes(path string, a AudioConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	v.Set("audio.master_volume", a.MasterVolume)
	v.Set("audio.midi_volume", a.MIDIVolume)
	v.Set("audio.audio_volume", a.AudioVolume)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
