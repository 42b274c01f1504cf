package midiroll

import (
	"encoding/binary"
	"math"

	"github.com/cbegin/midiroll-go/internal/audiofile"
	"github.com/cbegin/midiroll-go/internal/midifile"
)

// RenderMix renders seconds of the mix starting at from, exactly as the
// player would, without an audio device. Either song or clip may be nil.
// Synth, effect and volume options apply as they do to NewPlayer. A
// non-positive length yields no samples.
func RenderMix(song *midifile.Song, clip *audiofile.Clip, sampleRate int, from, seconds float64, opts ...PlayerOption) []float32 {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	m := newMixer(sampleRate, cfg.synthParams, cfg.synthFX)
	m.setMIDIVolume(cfg.midiVolume)
	m.audioVolume.Store(cfg.audioVolume)
	m.masterVolume.Store(cfg.masterVolume)
	m.sampleTap = cfg.sampleTap
	m.setClip(clip)
	m.rewind(from)
	if song != nil {
		m.scheduleFrom(song.Notes, from)
	}
	frames := max(0, int(float64(sampleRate)*seconds))
	out := make([]float32, frames*2)
	m.Process(out)
	return out
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3) // IEEE float
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*4))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*4))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
