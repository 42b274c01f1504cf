package synth

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/cbegin/midiroll-go/internal/lfo"
)

const twoPi = math.Pi * 2

// Waveform selects the oscillator shape shared by all voices.
type Waveform int

const (
	WaveTriangle Waveform = iota
	WaveSine
	WaveSquare
	WaveSawtooth
	WavePulse
)

var waveNames = map[string]Waveform{
	"triangle": WaveTriangle,
	"sine":     WaveSine,
	"square":   WaveSquare,
	"sawtooth": WaveSawtooth,
	"saw":      WaveSawtooth,
	"pulse":    WavePulse,
}

// ParseWaveform maps a configuration name to a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	w, ok := waveNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown waveform %q (expected triangle|sine|square|sawtooth|pulse)", name)
	}
	return w, nil
}

func (w Waveform) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveSquare:
		return "square"
	case WaveSawtooth:
		return "sawtooth"
	case WavePulse:
		return "pulse"
	default:
		return "triangle"
	}
}

// Params configures the voice pool and envelope. Times are in seconds.
type Params struct {
	Voices     int
	MasterGain float64
	Attack     float64
	Decay      float64
	Sustain    float64
	Release    float64
	Waveform   Waveform
	PulseDuty  float64

	// Vibrato depth is in semitones; 0 disables it.
	VibratoDepth float64
	VibratoRate  float64 // Hz
	VibratoShape lfo.Shape
}

func DefaultParams() Params {
	return Params{
		Voices:     8,
		MasterGain: 0.25,
		Attack:     0.005,
		Decay:      0.1,
		Sustain:    0.3,
		Release:    1,
		Waveform:   WaveTriangle,
		PulseDuty:  0.25,

		VibratoRate: 5.5,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	id       int
	note     int
	age      int
	freq     float64
	phase    float64
	velocity float64
	env      float64
	envState envState
}

// Engine is a polyphonic synth: one oscillator per voice
// through an ADSR envelope, summed to centre-panned stereo.
type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	masterGain atomic.Uint64
	vibrato    *lfo.LFO
	dcPrevIn   float64
	dcPrevOut  float64
}

func New(sampleRate int, params Params) *Engine {
	if params.Voices <= 0 {
		params.Voices = 8
	}
	if params.PulseDuty <= 0 || params.PulseDuty >= 1 {
		params.PulseDuty = 0.25
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
		vibrato:    lfo.New(sampleRate, params.VibratoRate, params.VibratoDepth, params.VibratoShape),
	}
	e.SetMasterGain(params.MasterGain)
	return e
}

// NoteOn starts a voice for a MIDI note. velocity is 0..127.
// It returns an id for NoteOff.
func (e *Engine) NoteOn(note int, velocity int) int {
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++
	e.voices[slot] = voice{
		active:   true,
		id:       id,
		note:     note,
		freq:     MIDIToFreq(note),
		velocity: clamp(float64(velocity)/127.0, 0, 1),
		envState: envAttack,
	}
	return id
}

func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id && v.envState != envRelease {
			v.envState = envRelease
		}
	}
}

// Reset silences every voice immediately.
func (e *Engine) Reset() {
	for i := range e.voices {
		e.voices[i] = voice{}
	}
	e.vibrato.Reset()
	e.dcPrevIn = 0
	e.dcPrevOut = 0
}

func (e *Engine) RenderFrame() (float32, float32) {
	gain := math.Float64frombits(e.masterGain.Load())
	ratio := e.vibrato.Ratio()
	var sum float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		v.age++
		env := e.advanceEnv(v)
		if !v.active {
			continue
		}
		sum += e.oscillate(v, ratio) * env * v.velocity
	}
	out := clamp(e.dcBlock(sum*gain), -1, 1)
	// Equal-power centre pan.
	s := float32(out * math.Sqrt2 / 2)
	return s, s
}

func (e *Engine) dcBlock(x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevIn + r*e.dcPrevOut
	e.dcPrevIn = x
	e.dcPrevOut = y
	return y
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (e *Engine) oscillate(v *voice, ratio float64) float64 {
	dt := v.freq * ratio / e.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	switch e.params.Waveform {
	case WaveSine:
		return math.Sin(twoPi * v.phase)
	case WaveSquare:
		return e.pulse(v.phase, dt, 0.5)
	case WavePulse:
		return e.pulse(v.phase, dt, e.params.PulseDuty)
	case WaveSawtooth:
		return 2*v.phase - 1 - polyBLEP(v.phase, dt)
	default:
		return 2*math.Abs(2*v.phase-1) - 1
	}
}

func (e *Engine) pulse(phase, dt, duty float64) float64 {
	out := -1.0
	if phase < duty {
		out = 1
	}
	out += polyBLEP(phase, dt)
	out -= polyBLEP(math.Mod(phase-duty+1, 1), dt)
	return out
}

func (e *Engine) stealVoice() int {
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	// Steal the oldest releasing voice, or failing that the oldest active voice.
	oldestRelease := -1
	oldestReleaseAge := -1
	oldestActive := 0
	oldestActiveAge := -1
	for i := range e.voices {
		v := &e.voices[i]
		if v.envState == envRelease && v.age > oldestReleaseAge {
			oldestRelease = i
			oldestReleaseAge = v.age
		}
		if v.age > oldestActiveAge {
			oldestActive = i
			oldestActiveAge = v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldestActive
}

func (e *Engine) stepFor(seconds float64) float64 {
	frames := seconds * e.sampleRate
	if frames < 1 {
		return 1
	}
	return 1 / frames
}

func (e *Engine) advanceEnv(v *voice) float64 {
	p := e.params
	switch v.envState {
	case envAttack:
		v.env += e.stepFor(p.Attack)
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		v.env -= (1 - p.Sustain) * e.stepFor(p.Decay)
		if v.env <= p.Sustain {
			v.env = p.Sustain
			v.envState = envSustain
		}
	case envSustain:
	case envRelease:
		// Linear ramp from full scale, so a release from any level ends within Release.
		v.env -= e.stepFor(p.Release)
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
			v.active = false
		}
	case envOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

// MIDIToFreq converts a MIDI note number to Hz (A4 = 69 = 440 Hz).
func MIDIToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	e.masterGain.Store(math.Float64bits(gain))
}

func (e *Engine) MasterGain() float64 {
	return math.Float64frombits(e.masterGain.Load())
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}
