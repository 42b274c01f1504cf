package midiroll

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cbegin/midiroll-go/internal/audiofile"
	intfx "github.com/cbegin/midiroll-go/internal/effects"
	"github.com/cbegin/midiroll-go/internal/midifile"
)

func rms(s []float32) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(s)))
}

func TestRenderMixStartsNotesOnTime(t *testing.T) {
	song := &midifile.Song{Notes: []midifile.Note{{Midi: 57, Time: 0.1, Duration: 0.2, Velocity: 127}}}
	out := RenderMix(song, nil, 8000, 0, 0.3)
	if len(out) != 2*2400 {
		t.Fatalf("len = %d", len(out))
	}
	if r := rms(out[:2*800]); r != 0 {
		t.Fatalf("rms before note = %v", r)
	}
	if r := rms(out[2*800:]); r < 0.01 {
		t.Fatalf("rms during note = %v", r)
	}
}

func TestRenderMixFromSkipsEarlierNotes(t *testing.T) {
	song := &midifile.Song{Notes: []midifile.Note{{Midi: 60, Time: 0, Duration: 1, Velocity: 100}}}
	out := RenderMix(song, nil, 8000, 0.05, 0.2)
	if r := rms(out); r != 0 {
		t.Fatalf("note before start rendered, rms = %v", r)
	}
}

func TestRenderMixClipOffset(t *testing.T) {
	samples := make([]float32, 2*100)
	for i := range 100 {
		samples[2*i] = float32(i) / 200
		samples[2*i+1] = -float32(i) / 200
	}
	clip := &audiofile.Clip{SampleRate: 100, Samples: samples}
	out := RenderMix(nil, clip, 100, 0.5, 0.1)
	if out[0] != 0.25 || out[1] != -0.25 {
		t.Fatalf("first frame = %v,%v, want clip frame 50", out[0], out[1])
	}
	out = RenderMix(nil, clip, 100, 0, 0.1, WithAudioVolume(0))
	if rms(out) != 0 {
		t.Fatalf("muted clip rendered")
	}
}

func TestRenderMixIsDeterministic(t *testing.T) {
	song := &midifile.Song{Notes: []midifile.Note{
		{Midi: 60, Time: 0, Duration: 0.3, Velocity: 90},
		{Midi: 64, Time: 0.1, Duration: 0.3, Velocity: 90},
	}}
	fx := func() PlayerOption { return WithSynthEffects(intfx.NewChain(intfx.NewReverb(8000, 0.5, 0.7, 0.25))) }
	a := RenderMix(song, nil, 8000, 0, 0.5, fx())
	b := RenderMix(song, nil, 8000, 0, 0.5, fx())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("renders differ at %d", i)
		}
	}
}

func TestRenderMixNegativeLength(t *testing.T) {
	song := &midifile.Song{Notes: []midifile.Note{{Midi: 60, Time: 0, Duration: 1, Velocity: 100}}}
	if out := RenderMix(song, nil, 8000, 0, -2); len(out) != 0 {
		t.Fatalf("len = %d, want 0", len(out))
	}
}

func TestEncodeWAVFloat32LE(t *testing.T) {
	wav := EncodeWAVFloat32LE([]float32{0.5, -0.5, 1, 0}, 48000, 2)
	if len(wav) != 44+16 {
		t.Fatalf("len = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:16]) != "WAVEfmt " || string(wav[36:40]) != "data" {
		t.Fatalf("bad chunk ids")
	}
	if f := binary.LittleEndian.Uint16(wav[20:]); f != 3 {
		t.Fatalf("format = %d, want IEEE float", f)
	}
	if r := binary.LittleEndian.Uint32(wav[24:]); r != 48000 {
		t.Fatalf("rate = %d", r)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(wav[48:])); v != -0.5 {
		t.Fatalf("second sample = %v", v)
	}
}
