package effects

import "math"

// Limiter is a linked-stereo peak limiter for the master bus. Gain drops
// instantly when a frame would exceed the ceiling and recovers over the
// release time.
type Limiter struct {
	ceiling float32
	release float32 // per-frame recovery coefficient
	gain    float32
}

// NewLimiter creates a limiter with a ceiling in dBFS (e.g. -1) and a
// release time in milliseconds.
func NewLimiter(sampleRate int, ceilingDB, releaseMs float32) *Limiter {
	if releaseMs <= 0 {
		releaseMs = 1
	}
	return &Limiter{
		ceiling: float32(math.Pow(10, float64(ceilingDB)/20)),
		release: float32(1 - math.Exp(-1/(float64(releaseMs)*float64(sampleRate)/1000))),
		gain:    1,
	}
}

func (m *Limiter) Process(l, r float32) (float32, float32) {
	peak := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	g := m.gain + m.release*(1-m.gain)
	if peak*g > m.ceiling {
		g = m.ceiling / peak
	}
	m.gain = g
	return l * m.gain, r * m.gain
}

// Gain reports the current gain reduction factor (1 = none).
func (m *Limiter) Gain() float32 { return m.gain }

func (m *Limiter) Reset() { m.gain = 1 }
