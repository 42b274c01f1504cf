// Package roll lays out notes on a piano-roll grid. Pitches run top to
// bottom from highest to lowest, time runs left to right. All coordinates are
// in pixels relative to the note area, excluding the label column.
package roll

import (
	"fmt"
	"math"
	"sort"

	"github.com/cbegin/midiroll-go/internal/midifile"
)

const (
	NoteHeight      = 20
	PixelsPerSecond = 120
	LabelWidth      = 60
)

type Options struct {
	NoteHeight      int
	PixelsPerSecond float64
}

func (o Options) withDefaults() Options {
	if o.NoteHeight <= 0 {
		o.NoteHeight = NoteHeight
	}
	if o.PixelsPerSecond <= 0 {
		o.PixelsPerSecond = PixelsPerSecond
	}
	return o
}

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

type Roll struct {
	notes  []midifile.Note
	opts   Options
	lo, hi int
	end    float64
}

// New builds a roll over notes. The slice is copied and sorted by start time.
func New(notes []midifile.Note, opts Options) *Roll {
	r := &Roll{opts: opts.withDefaults()}
	if len(notes) == 0 {
		return r
	}
	r.notes = append([]midifile.Note(nil), notes...)
	sort.SliceStable(r.notes, func(i, j int) bool { return r.notes[i].Time < r.notes[j].Time })
	r.lo, r.hi = r.notes[0].Midi, r.notes[0].Midi
	for _, n := range r.notes {
		r.lo = min(r.lo, n.Midi)
		r.hi = max(r.hi, n.Midi)
		r.end = max(r.end, n.End())
	}
	return r
}

func (r *Roll) Empty() bool { return len(r.notes) == 0 }

func (r *Roll) Notes() []midifile.Note { return r.notes }

func (r *Roll) Options() Options { return r.opts }

// Pitches returns every MIDI note number from the highest to the lowest
// present, one per row.
func (r *Roll) Pitches() []int {
	if r.Empty() {
		return nil
	}
	out := make([]int, 0, r.hi-r.lo+1)
	for m := r.hi; m >= r.lo; m-- {
		out = append(out, m)
	}
	return out
}

func (r *Roll) Rows() int {
	if r.Empty() {
		return 0
	}
	return r.hi - r.lo + 1
}

// End is the latest note end in seconds.
func (r *Roll) End() float64 { return r.end }

func (r *Roll) Width() float64 { return r.end * r.opts.PixelsPerSecond }

func (r *Roll) Height() float64 { return float64(r.Rows() * r.opts.NoteHeight) }

// RowY returns the top of the row for midi.
func (r *Roll) RowY(midi int) float64 {
	return float64((r.hi - midi) * r.opts.NoteHeight)
}

func (r *Roll) NoteRect(n midifile.Note) Rect {
	return Rect{
		X: r.X(n.Time),
		Y: r.RowY(n.Midi),
		W: n.Duration * r.opts.PixelsPerSecond,
		H: float64(r.opts.NoteHeight - 2),
	}
}

func (r *Roll) X(seconds float64) float64 { return seconds * r.opts.PixelsPerSecond }

// TimeAt converts an x coordinate to seconds, never negative.
func (r *Roll) TimeAt(x float64) float64 {
	return math.Max(0, x/r.opts.PixelsPerSecond)
}

// PitchAt returns the row pitch under y.
func (r *Roll) PitchAt(y float64) (int, bool) {
	if r.Empty() || y < 0 || y >= r.Height() {
		return 0, false
	}
	return r.hi - int(y)/r.opts.NoteHeight, true
}

// NoteAt hit-tests the note rectangles. When notes overlap the one that
// starts latest wins, matching draw order.
func (r *Roll) NoteAt(x, y float64) (midifile.Note, bool) {
	for i := len(r.notes) - 1; i >= 0; i-- {
		if r.NoteRect(r.notes[i]).Contains(x, y) {
			return r.notes[i], true
		}
	}
	return midifile.Note{}, false
}

// Tooltip describes a note the way the hover popup shows it.
func Tooltip(n midifile.Note) string {
	return fmt.Sprintf("Note: %s\nStart: %.2fs\nDuration: %.2fs", n.Name(), n.Time, n.Duration)
}
