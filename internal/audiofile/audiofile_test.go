package audiofile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// pcmWAV builds a canonical 16-bit PCM WAV file.
func pcmWAV(sampleRate, channels int, samples []int16) []byte {
	var b bytes.Buffer
	dataLen := len(samples) * 2
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(channels*2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	binary.Write(&b, binary.LittleEndian, samples)
	return b.Bytes()
}

func TestDecodeStereoWAV(t *testing.T) {
	data := pcmWAV(48000, 2, []int16{16384, -16384, 0, 32767, -32768, 8192})
	clip, err := Decode("take.wav", bytes.NewReader(data), 48000)
	require.NoError(t, err)
	require.Equal(t, "take.wav", clip.Name)
	require.Equal(t, 3, clip.Frames())

	l, r := clip.Frame(0)
	require.InDelta(t, 0.5, l, 1e-6)
	require.InDelta(t, -0.5, r, 1e-6)
	l, _ = clip.Frame(2)
	require.InDelta(t, -1.0, l, 1e-6)
	require.InDelta(t, 1.0, clip.Peak(), 1e-6)

	l, r = clip.Frame(3)
	require.Zero(t, l)
	require.Zero(t, r)
	l, r = clip.Frame(-1)
	require.Zero(t, l)
	require.Zero(t, r)
}

func TestDecodeMonoWAVDuplicatesChannel(t *testing.T) {
	clip, err := Decode("mono.wav", bytes.NewReader(pcmWAV(48000, 1, []int16{16384, -8192})), 48000)
	require.NoError(t, err)
	require.Equal(t, 2, clip.Frames())
	l, r := clip.Frame(1)
	require.InDelta(t, -0.25, l, 1e-6)
	require.Equal(t, l, r)
}

func TestDecodeResamples(t *testing.T) {
	samples := make([]int16, 2*24000)
	clip, err := Decode("slow.wav", bytes.NewReader(pcmWAV(24000, 2, samples)), 48000)
	require.NoError(t, err)
	require.Equal(t, 48000, clip.SampleRate)
	require.InDelta(t, 1.0, clip.Duration(), 0.01)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode("notes.txt", strings.NewReader(""), 48000)
	require.True(t, errors.Is(err, ErrUnsupportedFile))

	_, err = Decode("bad.wav", strings.NewReader("RIFF garbage"), 48000)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad.wav")

	_, err = Decode("ok.wav", bytes.NewReader(pcmWAV(48000, 2, nil)), 0)
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Loop.WAV")
	require.NoError(t, os.WriteFile(path, pcmWAV(48000, 2, make([]int16, 960)), 0o644))

	clip, err := Load(path, 48000)
	require.NoError(t, err)
	require.Equal(t, 480, clip.Frames())
	require.InDelta(t, 0.01, clip.Duration(), 1e-9)

	_, err = Load(filepath.Join(dir, "loop.flac"), 48000)
	require.True(t, errors.Is(err, ErrUnsupportedFile))
}

func TestNilClip(t *testing.T) {
	var c *Clip
	require.Zero(t, c.Frames())
	require.Zero(t, c.Duration())
	require.Zero(t, c.Peak())
}

func TestIsAudioFile(t *testing.T) {
	require.True(t, IsAudioFile("a.wav"))
	require.True(t, IsAudioFile("B.MP3"))
	require.False(t, IsAudioFile("a.mid"))
	require.False(t, IsAudioFile("wav"))
}
