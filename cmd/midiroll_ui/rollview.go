package main

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/cbegin/midiroll-go"
	"github.com/cbegin/midiroll-go/internal/midifile"
	"github.com/cbegin/midiroll-go/internal/roll"
	"github.com/hajimehoshi/ebiten/v2"
)

const rulerH = 18

var (
	rollBgColor     = color.RGBA{248, 248, 248, 255}
	pitchLineColor  = color.RGBA{224, 224, 224, 255}
	blackKeyColor   = color.RGBA{238, 238, 242, 255}
	labelBgColor    = color.RGBA{51, 51, 51, 255}
	noteColor       = color.RGBA{0, 123, 255, 255}
	activeNoteColor = color.RGBA{102, 178, 255, 255}
	playheadColor   = color.RGBA{220, 30, 30, 255}
	tooltipBgColor  = color.RGBA{40, 40, 48, 240}
)

// rollArea splits the roll panel into the pitch label column, the time ruler
// and the scrolling note area.
type rollArea struct {
	labels image.Rectangle
	ruler  image.Rectangle
	notes  image.Rectangle
}

func rollAreas(rect image.Rectangle) rollArea {
	inner := rect.Inset(2)
	labelRight := inner.Min.X + roll.LabelWidth
	return rollArea{
		labels: image.Rect(inner.Min.X, inner.Min.Y+rulerH, labelRight, inner.Max.Y),
		ruler:  image.Rect(labelRight, inner.Min.Y, inner.Max.X, inner.Min.Y+rulerH),
		notes:  image.Rect(labelRight, inner.Min.Y+rulerH, inner.Max.X, inner.Max.Y),
	}
}

func (g *game) rebuildRoll() {
	var notes []midifile.Note
	if s := g.player.Song(); s != nil {
		notes = s.Notes
	}
	g.roll = roll.New(notes, roll.Options{
		NoteHeight:      g.cfg.Roll.NoteHeight,
		PixelsPerSecond: g.cfg.Roll.PixelsPerSecond,
	})
	g.rowScroll = 0
	g.view.Content = g.contentWidth()
}

// contentWidth spans the notes or the recording, whichever is longer.
func (g *game) contentWidth() float64 {
	return math.Max(g.roll.Width(), g.roll.X(g.player.Duration()))
}

func (g *game) visibleRows(area rollArea) int {
	return max(1, area.notes.Dy()/g.roll.Options().NoteHeight)
}

func (g *game) clampRowScroll(area rollArea) {
	g.rowScroll = max(0, min(g.rowScroll, g.roll.Rows()-g.visibleRows(area)))
}

// rollPoint converts a screen point in the note area to roll coordinates.
func (g *game) rollPoint(mx, my int, area rollArea) (float64, float64) {
	x := float64(mx-area.notes.Min.X) + g.view.Offset
	y := float64(my-area.notes.Min.Y) + float64(g.rowScroll*g.roll.Options().NoteHeight)
	return x, y
}

func (g *game) updateHover(mx, my int, area rollArea) {
	g.hovering = false
	if !pointInRect(mx, my, area.notes) {
		return
	}
	x, y := g.rollPoint(mx, my, area)
	g.hover, g.hovering = g.roll.NoteAt(x, y)
}

func (g *game) drawRoll(screen *ebiten.Image, rect image.Rectangle, pos float64) {
	area := rollAreas(rect)
	g.view.Width = float64(area.notes.Dx())
	g.clampRowScroll(area)

	fillRect(screen, area.notes, rollBgColor)
	fillRect(screen, area.labels, labelBgColor)
	fillRect(screen, image.Rect(area.labels.Min.X, area.ruler.Min.Y, area.labels.Max.X, area.ruler.Max.Y), labelBgColor)
	fillRect(screen, area.ruler, panelColor)
	g.drawRuler(screen, area.ruler)

	if g.roll.Empty() {
		g.drawText(screen, "Load a MIDI file from the file list.", area.notes.Min.X+12, area.notes.Min.Y+12)
		g.drawPlayhead(screen, area, pos)
		return
	}

	h := g.roll.Options().NoteHeight
	pitches := g.roll.Pitches()
	rows := g.visibleRows(area)
	for i := 0; i < rows && g.rowScroll+i < len(pitches); i++ {
		pitch := pitches[g.rowScroll+i]
		y := area.notes.Min.Y + i*h
		if isBlackKey(pitch) {
			fillRect(screen, image.Rect(area.notes.Min.X, y, area.notes.Max.X, y+h), blackKeyColor)
		}
		fillRect(screen, image.Rect(area.notes.Min.X, y, area.notes.Max.X, y+1), pitchLineColor)
		g.drawSmallText(screen, midifile.NoteName(pitch), area.labels.Min.X+6, y+(h-smallLineH)/2)
	}

	top := float64(g.rowScroll * h)
	bottom := top + float64(rows*h)
	for _, n := range g.roll.Notes() {
		r := g.roll.NoteRect(n)
		if !g.view.Visible(r.X, max(r.W, 1)) || r.Y < top || r.Y+r.H > bottom {
			continue
		}
		x0 := area.notes.Min.X + int(g.view.ToScreen(r.X))
		x1 := x0 + max(1, int(math.Round(r.W)))
		y0 := area.notes.Min.Y + int(r.Y-top) + 1
		box := image.Rect(x0, y0, x1, y0+int(r.H)).Intersect(area.notes)
		if box.Empty() {
			continue
		}
		clr := noteColor
		if pos >= n.Time && pos < n.End() {
			clr = activeNoteColor
		}
		fillRect(screen, box, clr)
		name := n.Name()
		if box.Dx() >= len(name)*smallCharW+6 && box.Dy() >= smallLineH {
			g.drawSmallText(screen, name, box.Min.X+3, box.Min.Y+(box.Dy()-smallLineH)/2)
		}
	}
	g.drawPlayhead(screen, area, pos)
}

func (g *game) drawPlayhead(screen *ebiten.Image, area rollArea, pos float64) {
	x := area.notes.Min.X + int(g.view.ToScreen(g.roll.X(pos)))
	if x < area.notes.Min.X || x >= area.notes.Max.X {
		return
	}
	fillRect(screen, image.Rect(x, area.ruler.Min.Y, x+2, area.notes.Max.Y), playheadColor)
}

// drawRuler labels whole seconds, thinning the labels so they never touch.
func (g *game) drawRuler(screen *ebiten.Image, rect image.Rectangle) {
	pps := g.roll.Options().PixelsPerSecond
	step := rulerStep(pps)
	first := math.Floor(g.view.Offset/pps/step) * step
	for t := first; ; t += step {
		x := rect.Min.X + int(g.view.ToScreen(g.roll.X(t)))
		if x >= rect.Max.X {
			break
		}
		if x < rect.Min.X {
			continue
		}
		fillRect(screen, image.Rect(x, rect.Max.Y-6, x+1, rect.Max.Y), bevelDarker)
		g.drawTextScaled(screen, midiroll.FormatTime(t), x+3, rect.Min.Y+2, 1, true)
	}
}

// rulerStep picks the smallest whole-second label spacing that leaves room
// for an "m:ss" label.
func rulerStep(pps float64) float64 {
	minPx := float64(6*smallCharW + 8)
	for _, s := range []float64{1, 2, 5, 10, 15, 30, 60, 120, 300} {
		if s*pps >= minPx {
			return s
		}
	}
	return 600
}

func isBlackKey(midi int) bool {
	switch midi % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

func (g *game) drawTooltip(screen *ebiten.Image, mx, my int) {
	if !g.hovering {
		return
	}
	lines := strings.Split(roll.Tooltip(g.hover), "\n")
	w := 0
	for _, l := range lines {
		w = max(w, len(l)*smallCharW)
	}
	box := image.Rect(mx+14, my+14, mx+14+w+12, my+14+len(lines)*smallLineH+8)
	if box.Max.X > g.viewW {
		box = box.Add(image.Pt(-box.Dx()-20, 0))
	}
	if box.Max.Y > g.viewH {
		box = box.Add(image.Pt(0, -box.Dy()-20))
	}
	fillRect(screen, box, bevelLight)
	fillRect(screen, box.Inset(1), tooltipBgColor)
	for i, l := range lines {
		g.drawTextScaled(screen, l, box.Min.X+6, box.Min.Y+4+i*smallLineH, 1, false)
	}
}
