// Package midifile loads Standard MIDI Files into a flat, time-sorted list of
// notes with absolute times in seconds.
package midifile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrUnsupportedFile is returned for names without a MIDI extension.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Note is one sounding note. Time and Duration are in seconds.
type Note struct {
	Midi     int
	Time     float64
	Duration float64
	Velocity int // 0..127
	Track    int
	Channel  int
}

// End returns the time the note stops sounding.
func (n Note) End() float64 { return n.Time + n.Duration }

// Name returns the scientific pitch name of the note.
func (n Note) Name() string { return NoteName(n.Midi) }

type Track struct {
	Index     int
	Name      string
	NoteCount int
}

// Song is a parsed MIDI file with all tracks flattened into Notes.
type Song struct {
	Name       string
	Notes      []Note
	Tracks     []Track
	TempoBPM   float64 // first tempo in effect at tick 0
	Resolution int     // ticks per quarter note
}

// Range returns the lowest and highest MIDI note numbers present.
func (s *Song) Range() (lo, hi int, ok bool) {
	if s == nil || len(s.Notes) == 0 {
		return 0, 0, false
	}
	lo, hi = s.Notes[0].Midi, s.Notes[0].Midi
	for _, n := range s.Notes[1:] {
		lo = min(lo, n.Midi)
		hi = max(hi, n.Midi)
	}
	return lo, hi, true
}

// End returns the latest note end time, or 0 for an empty song.
func (s *Song) End() float64 {
	if s == nil {
		return 0
	}
	var end float64
	for _, n := range s.Notes {
		end = max(end, n.End())
	}
	return end
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the human-readable name of a MIDI note number; 60 is C4.
func NoteName(midi int) string {
	octave := midi/12 - 1
	if midi < 0 {
		return strconv.Itoa(midi)
	}
	return noteNames[midi%12] + strconv.Itoa(octave)
}

// IsMIDIFile reports whether name has a .mid or .midi extension.
func IsMIDIFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mid", ".midi":
		return true
	}
	return false
}

type options struct {
	log logrus.FieldLogger
}

type Option func(*options)

// WithLogger routes pairing warnings to l instead of the standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Load reads and parses a MIDI file from disk.
func Load(path string, opts ...Option) (*Song, error) {
	if !IsMIDIFile(path) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, bytes.NewReader(data), opts...)
}

// ErrSMPTETime is returned for files timed in SMPTE frames rather than
// ticks per quarter note.
var ErrSMPTETime = errors.New("SMPTE time format not supported")

// checkDivision rejects SMPTE-timed files up front; smf.ReadFrom assumes
// metric ticks and panics on them. Short or malformed headers are left for
// ReadFrom to report.
func checkDivision(data []byte) error {
	if len(data) < 14 || string(data[:4]) != "MThd" {
		return nil
	}
	if binary.BigEndian.Uint16(data[12:14])&0x8000 != 0 {
		return ErrSMPTETime
	}
	return nil
}

type noteKey struct {
	channel uint8
	key     uint8
}

// Parse decodes an SMF stream. Notes are paired first-in first-out per
// channel and key within each track; a note left open at the end of its
// track is closed at the track's last event.
func Parse(name string, r io.Reader, opts ...Option) (*Song, error) {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(name), err)
	}
	if err := checkDivision(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(name), err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(name), err)
	}
	clock, err := newTickClock(s)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(name), err)
	}
	log := o.log.WithField("file", filepath.Base(name))

	song := &Song{
		Name:       filepath.Base(name),
		TempoBPM:   clock.initialBPM(),
		Resolution: clock.resolution,
	}
	for ti, tr := range s.Tracks {
		info := Track{Index: ti}
		open := make(map[noteKey][]int)
		var abs int64
		for _, ev := range tr {
			abs += int64(ev.Delta)
			var ch, key, vel uint8
			var text string
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				k := noteKey{ch, key}
				open[k] = append(open[k], len(song.Notes))
				song.Notes = append(song.Notes, Note{
					Midi:     int(key),
					Time:     clock.seconds(abs),
					Velocity: int(vel),
					Track:    ti,
					Channel:  int(ch),
				})
				info.NoteCount++
			case ev.Message.GetNoteEnd(&ch, &key):
				k := noteKey{ch, key}
				pending := open[k]
				if len(pending) == 0 {
					log.Warnf("note off for unpressed note: %s ch=%d track=%d", NoteName(int(key)), ch, ti)
					continue
				}
				idx := pending[0]
				open[k] = pending[1:]
				song.Notes[idx].Duration = clock.seconds(abs) - song.Notes[idx].Time
			case ev.Message.GetMetaTrackName(&text):
				if info.Name == "" {
					info.Name = strings.TrimSpace(text)
				}
			}
		}
		end := clock.seconds(abs)
		for k, pending := range open {
			for _, idx := range pending {
				log.Warnf("missing note off for note: %s ch=%d track=%d", NoteName(int(k.key)), k.channel, ti)
				song.Notes[idx].Duration = end - song.Notes[idx].Time
			}
		}
		song.Tracks = append(song.Tracks, info)
	}
	sort.SliceStable(song.Notes, func(i, j int) bool {
		a, b := song.Notes[i], song.Notes[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Midi < b.Midi
	})
	return song, nil
}
