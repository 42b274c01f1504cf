package effects

// Reverb is a small Schroeder reverb: four parallel combs feeding two
// allpass stages. The right channel reads its combs at a slight offset so
// the tail is not mono.
type Reverb struct {
	combs   [4]delayLine
	allpass [2]delayLine
	spread  int
	wet     float32
}

type delayLine struct {
	buf []float32
	pos int
	fb  float32
}

// NewReverb creates a reverb effect. roomSize scales delay lengths (0..1),
// feedback sets decay (clamped to 0.95), wet is the mix amount (0..1).
func NewReverb(sampleRate int, roomSize, feedback, wet float32) *Reverb {
	base := int(float32(sampleRate) * clamp(roomSize, 0, 1) * 0.05)
	if base < 16 {
		base = 16
	}
	fb := clamp(feedback, 0, 0.95)
	r := &Reverb{wet: clamp(wet, 0, 1), spread: base / 40}
	ratios := [4]int{1000, 1117, 1271, 1437}
	for i := range r.combs {
		r.combs[i] = newDelayLine(base*ratios[i]/1000+r.spread, fb)
	}
	r.allpass[0] = newDelayLine(base*347/1000, 0.5)
	r.allpass[1] = newDelayLine(base*213/1000, 0.5)
	return r
}

func newDelayLine(n int, fb float32) delayLine {
	if n < 1 {
		n = 1
	}
	return delayLine{buf: make([]float32, n), fb: fb}
}

// tap reads the sample written `back` frames before the current slot.
func (d *delayLine) tap(back int) float32 {
	i := d.pos - back
	for i < 0 {
		i += len(d.buf)
	}
	return d.buf[i%len(d.buf)]
}

func (d *delayLine) comb(in float32) float32 {
	out := d.buf[d.pos]
	d.buf[d.pos] = in + out*d.fb
	d.advance()
	return out
}

func (d *delayLine) allpassStep(in float32) float32 {
	delayed := d.buf[d.pos]
	d.buf[d.pos] = in + delayed*d.fb
	d.advance()
	return delayed - in
}

func (d *delayLine) advance() {
	d.pos++
	if d.pos >= len(d.buf) {
		d.pos = 0
	}
}

func (d *delayLine) reset() {
	clear(d.buf)
	d.pos = 0
}

func (r *Reverb) Process(l, rr float32) (float32, float32) {
	mono := (l + rr) * 0.5
	var outL, outR float32
	for i := range r.combs {
		outR += r.combs[i].tap(r.spread)
		outL += r.combs[i].comb(mono)
	}
	outL *= 0.25
	outR *= 0.25
	outL = r.allpass[1].allpassStep(r.allpass[0].allpassStep(outL))
	// Right shares the allpass state; its diffusion comes from the comb offset.
	dry := 1 - r.wet
	return l*dry + outL*r.wet, rr*dry + outR*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		r.combs[i].reset()
	}
	for i := range r.allpass {
		r.allpass[i].reset()
	}
}
