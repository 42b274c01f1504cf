package roll

import "math"

// Viewport is the horizontally scrolled window onto a roll's note area.
type Viewport struct {
	Offset  float64 // left edge in roll pixels
	Width   float64
	Content float64 // total roll width
}

func (v *Viewport) maxOffset() float64 {
	return math.Max(0, v.Content-v.Width)
}

// Scroll moves the window by dx, clamped to the content.
func (v *Viewport) Scroll(dx float64) {
	v.Offset = math.Min(math.Max(0, v.Offset+dx), v.maxOffset())
}

// Follow pages the window so x stays visible. A playhead that runs past the
// right edge flips to the left edge of the next page; one left of the window
// (after a backwards seek) is placed at the left edge.
func (v *Viewport) Follow(x float64) {
	if v.Width <= 0 {
		return
	}
	switch {
	case x < v.Offset:
		v.Offset = x
	case x >= v.Offset+v.Width:
		v.Offset = x
	default:
		return
	}
	v.Offset = math.Min(math.Max(0, v.Offset), v.maxOffset())
}

// Visible reports whether the span [x, x+w) overlaps the window.
func (v *Viewport) Visible(x, w float64) bool {
	return x+w > v.Offset && x < v.Offset+v.Width
}

// ToScreen converts a roll x coordinate to window-relative.
func (v *Viewport) ToScreen(x float64) float64 { return x - v.Offset }
