// Package lfo is the low-frequency oscillator behind synth vibrato.
package lfo

import (
	"fmt"
	"math"
	"strings"
)

type Shape int

const (
	ShapeSine Shape = iota
	ShapeTriangle
)

// ParseShape maps a configuration name to a Shape.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sine":
		return ShapeSine, nil
	case "triangle":
		return ShapeTriangle, nil
	}
	return 0, fmt.Errorf("unknown lfo shape %q (expected sine|triangle)", name)
}

func (s Shape) String() string {
	if s == ShapeTriangle {
		return "triangle"
	}
	return "sine"
}

// LFO produces a pitch offset in semitones, advancing one sample per call.
// It is shared by every voice of an engine.
type LFO struct {
	step  float64 // phase increment per sample
	depth float64 // peak offset in semitones
	shape Shape
	phase float64 // [0, 1)
}

func New(sampleRate int, rateHz, depth float64, shape Shape) *LFO {
	l := &LFO{depth: depth, shape: shape}
	if sampleRate > 0 && rateHz > 0 {
		l.step = rateHz / float64(sampleRate)
	}
	return l
}

// Active reports whether the LFO modulates at all. A nil LFO is inactive.
func (l *LFO) Active() bool {
	return l != nil && l.depth != 0 && l.step != 0
}

// Next returns the current offset in [-depth, depth] and advances the phase.
// The cycle starts at zero offset so a fresh note is in tune.
func (l *LFO) Next() float64 {
	if !l.Active() {
		return 0
	}
	var v float64
	switch l.shape {
	case ShapeTriangle:
		// 0 -> 1 -> -1 -> 0 over one cycle.
		switch {
		case l.phase < 0.25:
			v = 4 * l.phase
		case l.phase < 0.75:
			v = 2 - 4*l.phase
		default:
			v = 4*l.phase - 4
		}
	default:
		v = math.Sin(2 * math.Pi * l.phase)
	}
	l.phase += l.step
	l.phase -= math.Floor(l.phase)
	return v * l.depth
}

// Ratio returns the frequency multiplier for the next sample.
func (l *LFO) Ratio() float64 {
	if !l.Active() {
		return 1
	}
	return math.Exp2(l.Next() / 12)
}

func (l *LFO) Reset() {
	if l != nil {
		l.phase = 0
	}
}
