package synth

import (
	"math"
	"testing"
)

func render(e *Engine, frames int) (energy float64) {
	for i := 0; i < frames; i++ {
		l, _ := e.RenderFrame()
		energy += math.Abs(float64(l))
	}
	return energy
}

func TestEngineGeneratesSignalForEveryWaveform(t *testing.T) {
	for _, w := range []Waveform{WaveTriangle, WaveSine, WaveSquare, WaveSawtooth, WavePulse} {
		t.Run(w.String(), func(t *testing.T) {
			p := DefaultParams()
			p.Waveform = w
			e := New(48000, p)
			e.NoteOn(60, 100)
			if render(e, 4800) == 0 {
				t.Fatalf("expected non-zero output for %s", w)
			}
		})
	}
}

func TestNoteOffReleasesVoice(t *testing.T) {
	p := DefaultParams()
	p.Release = 0.05
	e := New(48000, p)
	id := e.NoteOn(69, 127)
	render(e, 2400)
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("active voices = %d, want 1", e.ActiveVoiceCount())
	}
	e.NoteOff(id)
	render(e, 48000/20+10)
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("voice still active after release")
	}
}

func TestVelocityScalesLevel(t *testing.T) {
	loud := New(48000, DefaultParams())
	loud.NoteOn(60, 127)
	soft := New(48000, DefaultParams())
	soft.NoteOn(60, 32)
	le, se := render(loud, 4800), render(soft, 4800)
	if le <= se*2 {
		t.Fatalf("expected velocity 127 to be much louder than 32: loud=%f soft=%f", le, se)
	}
}

func TestVoiceStealingKeepsPoolSize(t *testing.T) {
	p := DefaultParams()
	p.Voices = 4
	e := New(48000, p)
	ids := make([]int, 0, 6)
	for n := 60; n < 66; n++ {
		ids = append(ids, e.NoteOn(n, 100))
		e.RenderFrame()
	}
	if got := e.ActiveVoiceCount(); got != 4 {
		t.Fatalf("active voices = %d, want 4", got)
	}
	// The two oldest were stolen; releasing them is a no-op.
	e.NoteOff(ids[0])
	e.NoteOff(ids[1])
	for i := range e.voices {
		if e.voices[i].envState == envRelease {
			t.Fatalf("stolen voice id released a live voice")
		}
	}
}

func TestResetSilences(t *testing.T) {
	e := New(48000, DefaultParams())
	e.NoteOn(60, 100)
	e.NoteOn(64, 100)
	render(e, 1000)
	e.Reset()
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("voices active after reset")
	}
	if l, r := e.RenderFrame(); l != 0 || r != 0 {
		t.Fatalf("output after reset = (%f, %f)", l, r)
	}
}

func TestMasterGainClampsNegative(t *testing.T) {
	e := New(48000, DefaultParams())
	e.SetMasterGain(-1)
	if e.MasterGain() != 0 {
		t.Fatalf("gain = %f, want 0", e.MasterGain())
	}
}

func TestMIDIToFreq(t *testing.T) {
	cases := map[int]float64{69: 440, 57: 220, 81: 880, 60: 261.6256}
	for note, want := range cases {
		if got := MIDIToFreq(note); math.Abs(got-want) > 0.001 {
			t.Errorf("MIDIToFreq(%d) = %f, want %f", note, got, want)
		}
	}
}

func TestParseWaveform(t *testing.T) {
	for name, want := range map[string]Waveform{"Triangle": WaveTriangle, " saw ": WaveSawtooth, "pulse": WavePulse} {
		got, err := ParseWaveform(name)
		if err != nil || got != want {
			t.Errorf("ParseWaveform(%q) = (%v, %v), want %v", name, got, err, want)
		}
	}
	if _, err := ParseWaveform("fm"); err == nil {
		t.Fatalf("expected error for unknown waveform")
	}
}

func TestVibratoBendsPitch(t *testing.T) {
	plain := DefaultParams()
	plain.Waveform = WaveSine
	wobble := plain
	wobble.VibratoDepth = 1
	wobble.VibratoRate = 6

	a, b := New(48000, plain), New(48000, wobble)
	a.NoteOn(69, 100)
	b.NoteOn(69, 100)
	var diff float64
	for i := 0; i < 4800; i++ {
		la, _ := a.RenderFrame()
		lb, _ := b.RenderFrame()
		diff += math.Abs(float64(la - lb))
	}
	if diff < 1 {
		t.Fatalf("vibrato had no audible effect: diff=%f", diff)
	}

	// Zero depth leaves the engine bit-identical to no vibrato.
	still := plain
	still.VibratoRate = 6
	c, d := New(48000, plain), New(48000, still)
	c.NoteOn(69, 100)
	d.NoteOn(69, 100)
	for i := 0; i < 480; i++ {
		lc, _ := c.RenderFrame()
		ld, _ := d.RenderFrame()
		if lc != ld {
			t.Fatalf("frame %d differs with zero depth", i)
		}
	}
}
