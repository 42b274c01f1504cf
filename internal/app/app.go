// Package app wires configuration into a logger and a player for the
// commands.
package app

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/midiroll-go"
	"github.com/cbegin/midiroll-go/internal/config"
	intfx "github.com/cbegin/midiroll-go/internal/effects"
	"github.com/cbegin/midiroll-go/internal/logging"
)

// Setup loads configuration (from path when set) and builds the logger.
func Setup(path string, logOut io.Writer) (config.Config, *logrus.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.Log.Level, logOut)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// PlayerOptions translates cfg into player options.
func PlayerOptions(cfg config.Config, log logrus.FieldLogger) ([]midiroll.PlayerOption, error) {
	chain, err := intfx.ParseChain(cfg.Synth.Effects, cfg.Audio.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("synth effects: %w", err)
	}
	opts := []midiroll.PlayerOption{
		midiroll.WithLogger(log),
		midiroll.WithSynthParams(cfg.SynthParams()),
		midiroll.WithMIDIVolume(cfg.Audio.MIDIVolume),
		midiroll.WithAudioVolume(cfg.Audio.AudioVolume),
		midiroll.WithMasterVolume(cfg.Audio.MasterVolume),
	}
	if chain != nil {
		opts = append(opts, midiroll.WithSynthEffects(chain))
	}
	return opts, nil
}

// NewPlayer builds a player from cfg and loads any non-empty paths.
func NewPlayer(cfg config.Config, log logrus.FieldLogger, midiPath, audioPath string, extra ...midiroll.PlayerOption) (*midiroll.Player, error) {
	opts, err := PlayerOptions(cfg, log)
	if err != nil {
		return nil, err
	}
	pl, err := midiroll.NewPlayer(cfg.Audio.SampleRate, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	if midiPath != "" {
		if err := pl.LoadMIDI(midiPath); err != nil {
			return nil, err
		}
	}
	if audioPath != "" {
		if err := pl.LoadAudio(audioPath); err != nil {
			return nil, err
		}
	}
	return pl, nil
}

// StatusLines are the load indicators shown above the roll.
func StatusLines(pl *midiroll.Player) []string {
	var lines []string
	if s := pl.Song(); s != nil {
		lines = append(lines, "MIDI Loaded: "+s.Name)
	}
	if pl.Clip() != nil {
		lines = append(lines, "Audio Loaded")
	}
	return lines
}
