// Package audiofile decodes WAV and MP3 recordings into interleaved stereo
// float32 clips at a fixed output sample rate.
package audiofile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// ErrUnsupportedFile is returned for names without a known audio extension.
var ErrUnsupportedFile = errors.New("unsupported audio file type")

// Clip is a decoded recording. Samples are interleaved L/R.
type Clip struct {
	Name       string
	SampleRate int
	Samples    []float32
}

func (c *Clip) Frames() int {
	if c == nil {
		return 0
	}
	return len(c.Samples) / 2
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// Frame returns the stereo sample pair at frame i, or silence outside the clip.
func (c *Clip) Frame(i int) (l, r float32) {
	if c == nil || i < 0 || 2*i+1 >= len(c.Samples) {
		return 0, 0
	}
	return c.Samples[2*i], c.Samples[2*i+1]
}

// IsAudioFile reports whether name has a .wav or .mp3 extension.
func IsAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".mp3":
		return true
	}
	return false
}

// Load reads a recording from disk and resamples it to sampleRate.
func Load(path string, sampleRate int) (*Clip, error) {
	if !IsAudioFile(path) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(path, bytes.NewReader(data), sampleRate)
}

// Decode picks a decoder from name's extension.
func Decode(name string, r io.Reader, sampleRate int) (*Clip, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	var (
		stream io.Reader
		err    error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		stream, err = wav.DecodeWithSampleRate(sampleRate, r)
	case ".mp3":
		stream, err = mp3.DecodeWithSampleRate(sampleRate, r)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(name), ErrUnsupportedFile)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	return &Clip{
		Name:       filepath.Base(name),
		SampleRate: sampleRate,
		Samples:    int16ToFloat(pcm),
	}, nil
}

// int16ToFloat converts 16-bit little-endian stereo PCM to float32 in [-1, 1).
func int16ToFloat(pcm []byte) []float32 {
	n := len(pcm) / 4 * 2 // whole frames only
	out := make([]float32, n)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		out[i] = float32(v) / 32768
	}
	return out
}

// Peak returns the largest absolute sample value in the clip.
func (c *Clip) Peak() float32 {
	if c == nil {
		return 0
	}
	var p float64
	for _, s := range c.Samples {
		p = math.Max(p, math.Abs(float64(s)))
	}
	return float32(p)
}
