package main

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const (
	scopeWindow = 1024
	ringBufLen  = 65536
	meterFloor  = -60.0 // dBFS at the left edge of the level meter
)

// scope keeps the most recent mixed output for the waveform view and level
// meter.
type scope struct {
	mu       sync.Mutex
	ring     []float32 // mono
	writePos int
	peakL    float32 // since last Levels call
	peakR    float32
}

func newScope() *scope {
	return &scope{ring: make([]float32, ringBufLen)}
}

// Tap is called from the audio thread with interleaved stereo.
func (s *scope) Tap(samples []float32) {
	s.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		l, r := samples[i], samples[i+1]
		s.ring[s.writePos] = (l + r) * 0.5
		s.writePos = (s.writePos + 1) % ringBufLen
		s.peakL = max(s.peakL, abs32(l))
		s.peakR = max(s.peakR, abs32(r))
	}
	s.mu.Unlock()
}

// Reset silences the ring, used when the transport jumps.
func (s *scope) Reset() {
	s.mu.Lock()
	clear(s.ring)
	s.peakL, s.peakR = 0, 0
	s.mu.Unlock()
}

// Latest copies the n most recent mono samples, oldest first.
func (s *scope) Latest(n int) []float32 {
	n = min(n, ringBufLen)
	out := make([]float32, n)
	s.mu.Lock()
	start := (s.writePos - n + ringBufLen) % ringBufLen
	for i := range out {
		out[i] = s.ring[(start+i)%ringBufLen]
	}
	s.mu.Unlock()
	return out
}

// Levels returns the channel peaks seen since the previous call and resets
// them.
func (s *scope) Levels() (l, r float32) {
	s.mu.Lock()
	l, r = s.peakL, s.peakR
	s.peakL, s.peakR = 0, 0
	s.mu.Unlock()
	return l, r
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// meterFrac maps a linear peak onto 0..1 of a dB meter.
func meterFrac(peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	db := 20 * math.Log10(peak)
	return clamp((db-meterFloor)/-meterFloor, 0, 1)
}

// decayLevel holds meter ballistics: instant rise, slow fall.
func decayLevel(held, peak float64) float64 {
	if peak >= held {
		return peak
	}
	return max(peak, held*0.92)
}

// findZeroCrossing finds a rising zero-crossing in samples to stabilize the waveform display.
func findZeroCrossing(samples []float32, searchLen int) int {
	if searchLen > len(samples)-2 {
		searchLen = len(samples) - 2
	}
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}

func (g *game) drawScope(screen *ebiten.Image, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	meterW := 18
	waveRect := image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X-2*meterW-8, inner.Max.Y)
	width, height := waveRect.Dx(), waveRect.Dy()
	if width < 2 || height < 4 {
		return
	}
	if g.scopeImg == nil || g.scopeW != width || g.scopeH != height {
		g.scopeW = width
		g.scopeH = height
		g.scopeImg = ebiten.NewImage(width, height)
	}
	g.scopeImg.Fill(color.RGBA{14, 16, 22, 255})
	g.drawWaveform(g.scopeImg, g.scope.Latest(scopeWindow), width, height)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(waveRect.Min.X), float64(waveRect.Min.Y))
	screen.DrawImage(g.scopeImg, op)

	l, r := g.scope.Levels()
	g.levelL = decayLevel(g.levelL, float64(l))
	g.levelR = decayLevel(g.levelR, float64(r))
	x := waveRect.Max.X + 8
	drawMeter(screen, image.Rect(x, inner.Min.Y, x+meterW-2, inner.Max.Y), g.levelL)
	drawMeter(screen, image.Rect(x+meterW, inner.Min.Y, x+2*meterW-2, inner.Max.Y), g.levelR)
}

func drawMeter(screen *ebiten.Image, rect image.Rectangle, level float64) {
	fillRect(screen, rect, color.RGBA{14, 16, 22, 255})
	h := int(float64(rect.Dy()) * meterFrac(level))
	if h <= 0 {
		return
	}
	clr := color.RGBA{60, 200, 90, 255}
	if level >= 0.9 {
		clr = color.RGBA{230, 60, 50, 255}
	} else if level >= 0.5 {
		clr = color.RGBA{230, 200, 60, 255}
	}
	fillRect(screen, image.Rect(rect.Min.X, rect.Max.Y-h, rect.Max.X, rect.Max.Y), clr)
}

func (g *game) drawWaveform(dst *ebiten.Image, samples []float32, width int, height int) {
	if len(samples) < 2 || width < 2 || height < 4 {
		return
	}
	midY := height / 2
	ebitenutil.DrawRect(dst, 0, float64(midY), float64(width), 1, color.RGBA{40, 44, 58, 100})

	// Auto-gain: fast attack, slow release.
	var peak float32
	for _, s := range samples {
		peak = max(peak, abs32(s))
	}
	target := max(float64(peak), 0.01)
	if target > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + target*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + target*0.005
	}
	g.wavePeak = max(g.wavePeak, 0.01)
	gain := float64(midY-2) / g.wavePeak

	trigger := findZeroCrossing(samples, len(samples)/4)
	visible := max(len(samples)-trigger, 2)
	waveColor := color.RGBA{80, 200, 255, 220}
	prevX := 0
	prevY := midY - int(float64(samples[trigger])*gain)
	for px := 1; px < width; px++ {
		si := min(trigger+px*visible/width, len(samples)-1)
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(dst, float64(prevX), float64(prevY), float64(px), float64(y), waveColor)
		prevX, prevY = px, y
	}
}
