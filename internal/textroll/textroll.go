// Package textroll draws a piano roll as text for terminal views.
package textroll

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/midiroll-go/internal/midifile"
	"github.com/cbegin/midiroll-go/internal/roll"
)

// LabelWidth is the number of cells taken by the pitch label column.
const LabelWidth = 5

// eps absorbs float error when a time lands exactly on a column edge.
const eps = 1e-9

var (
	labelStyle    = lipgloss.NewStyle().Width(LabelWidth).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#333333"))
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#007bff"))
	gridStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#585b70"))
	playheadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	rulerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
)

// Glyphs used per cell.
const (
	glyphEmpty    = '·'
	glyphNote     = '█'
	glyphPlayhead = '│'
	glyphOnHead   = '┃'
)

// View selects the window of the roll to draw.
type View struct {
	Columns       int     // note cells per row
	Rows          int     // pitch rows; 0 draws every row
	SecondsPerCol float64 // 0 means 0.1
	Start         float64 // time at the left edge, seconds
	TopPitch      int     // highest pitch drawn; 0 means the roll's highest
	Playhead      float64 // seconds; negative hides it
}

func (v View) spc() float64 {
	if v.SecondsPerCol <= 0 {
		return 0.1
	}
	return v.SecondsPerCol
}

// Column returns the cell column showing t, or -1 when it is off screen.
func (v View) Column(t float64) int {
	if t < v.Start {
		return -1
	}
	c := int(math.Floor((t-v.Start)/v.spc() + eps))
	if c >= v.Columns {
		return -1
	}
	return c
}

// Follow pages Start so t stays on screen, like roll.Viewport.Follow.
func (v *View) Follow(t float64) {
	vp := roll.Viewport{
		Offset:  v.Start,
		Width:   float64(v.Columns) * v.spc(),
		Content: math.Inf(1),
	}
	vp.Follow(t)
	v.Start = vp.Offset
}

// Render draws a ruler line followed by one line per pitch row.
func Render(r *roll.Roll, v View) string {
	if r.Empty() || v.Columns <= 0 {
		return ""
	}
	pitches := r.Pitches()
	if v.TopPitch > 0 {
		for i, p := range pitches {
			if p <= v.TopPitch {
				pitches = pitches[i:]
				break
			}
		}
	}
	if v.Rows > 0 && len(pitches) > v.Rows {
		pitches = pitches[:v.Rows]
	}

	head := v.Column(v.Playhead)
	if v.Playhead < 0 {
		head = -1
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", LabelWidth))
	b.WriteString(rulerStyle.Render(ruler(v)))
	for _, p := range pitches {
		b.WriteByte('\n')
		b.WriteString(labelStyle.Render(midifile.NoteName(p)))
		b.WriteString(renderRow(rowCells(r, p, v), head))
	}
	return b.String()
}

// rowCells marks the columns covered by a note on pitch.
func rowCells(r *roll.Roll, pitch int, v View) []bool {
	cells := make([]bool, v.Columns)
	spc := v.spc()
	end := v.Start + float64(v.Columns)*spc
	for _, n := range r.Notes() {
		if n.Midi != pitch || n.End() <= v.Start || n.Time >= end {
			continue
		}
		first := max(0, int(math.Floor((n.Time-v.Start)/spc+eps)))
		last := min(v.Columns-1, max(first, int(math.Ceil((n.End()-v.Start)/spc-eps))-1))
		for c := first; c <= last; c++ {
			cells[c] = true
		}
	}
	return cells
}

type cell int

const (
	cellEmpty cell = iota
	cellNote
	cellHead
	cellHeadOnNote
)

func (c cell) render(n int) string {
	switch c {
	case cellNote:
		return noteStyle.Render(strings.Repeat(string(glyphNote), n))
	case cellHead:
		return playheadStyle.Render(strings.Repeat(string(glyphPlayhead), n))
	case cellHeadOnNote:
		return playheadStyle.Render(strings.Repeat(string(glyphOnHead), n))
	default:
		return gridStyle.Render(strings.Repeat(string(glyphEmpty), n))
	}
}

// renderRow styles runs of equal cells together.
func renderRow(notes []bool, head int) string {
	cells := make([]cell, len(notes))
	for i, on := range notes {
		if on {
			cells[i] = cellNote
		}
	}
	if head >= 0 && head < len(cells) {
		cells[head] += cellHead
	}
	var b strings.Builder
	for i := 0; i < len(cells); {
		j := i + 1
		for j < len(cells) && cells[j] == cells[i] {
			j++
		}
		b.WriteString(cells[i].render(j - i))
		i = j
	}
	return b.String()
}

// ruler marks whole seconds, skipping labels that would overlap.
func ruler(v View) string {
	line := []rune(strings.Repeat(" ", v.Columns))
	free := 0
	for s := math.Ceil(v.Start); v.Column(s) >= 0; s++ {
		c := v.Column(s)
		if c < free {
			continue
		}
		mark := "|" + formatSeconds(s)
		for i, ch := range mark {
			if c+i < len(line) {
				line[c+i] = ch
			}
		}
		free = c + len(mark) + 1
	}
	return string(line)
}

func formatSeconds(s float64) string {
	total := int(s)
	if total < 60 {
		return strconv.Itoa(total) + "s"
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
