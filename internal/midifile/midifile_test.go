package midifile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const res = 960

func encode(t *testing.T, tracks ...smf.Track) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(res)
	for _, tr := range tracks {
		require.NoError(t, s.Add(tr))
	}
	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func tempoTrack(bpm float64) smf.Track {
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("Conductor"))
	tr.Add(0, smf.MetaTempo(bpm))
	tr.Close(0)
	return tr
}

func quietLogger() (logrus.FieldLogger, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	return l, hook
}

func TestParseFlattensTracksInTimeOrder(t *testing.T) {
	var piano smf.Track
	piano.Add(0, smf.MetaTrackSequenceName("Piano"))
	piano.Add(0, midi.NoteOn(0, 60, 100))
	piano.Add(res, midi.NoteOff(0, 60))
	piano.Add(0, midi.NoteOn(0, 64, 80))
	piano.Add(res/2, midi.NoteOn(0, 64, 0)) // velocity 0 ends the note
	piano.Close(0)

	var bass smf.Track
	bass.Add(0, midi.NoteOn(1, 43, 90))
	bass.Add(2*res, midi.NoteOff(1, 43))
	bass.Close(0)

	log, hook := quietLogger()
	song, err := Parse("song.mid", bytes.NewReader(encode(t, tempoTrack(120), piano, bass)), WithLogger(log))
	require.NoError(t, err)
	require.Empty(t, hook.AllEntries())

	require.Equal(t, "song.mid", song.Name)
	require.Equal(t, 120.0, song.TempoBPM)
	require.Equal(t, res, song.Resolution)
	require.Len(t, song.Tracks, 3)
	require.Equal(t, "Conductor", song.Tracks[0].Name)
	require.Equal(t, "Piano", song.Tracks[1].Name)
	require.Equal(t, 2, song.Tracks[1].NoteCount)
	require.Equal(t, 1, song.Tracks[2].NoteCount)

	require.Len(t, song.Notes, 3)
	// Same start time orders by pitch.
	require.Equal(t, 43, song.Notes[0].Midi)
	require.Equal(t, 2, song.Notes[0].Track)
	require.Equal(t, 1, song.Notes[0].Channel)
	require.InDelta(t, 1.0, song.Notes[0].Duration, 1e-9)

	require.Equal(t, 60, song.Notes[1].Midi)
	require.Equal(t, 100, song.Notes[1].Velocity)
	require.InDelta(t, 0.0, song.Notes[1].Time, 1e-9)
	require.InDelta(t, 0.5, song.Notes[1].Duration, 1e-9)

	require.Equal(t, 64, song.Notes[2].Midi)
	require.InDelta(t, 0.5, song.Notes[2].Time, 1e-9)
	require.InDelta(t, 0.25, song.Notes[2].Duration, 1e-9)

	lo, hi, ok := song.Range()
	require.True(t, ok)
	require.Equal(t, 43, lo)
	require.Equal(t, 64, hi)
	require.InDelta(t, 1.0, song.End(), 1e-9)
}

func TestParseHonorsTempoChanges(t *testing.T) {
	var cond smf.Track
	cond.Add(0, smf.MetaTempo(120))
	cond.Add(res, smf.MetaTempo(60))
	cond.Close(0)

	var notes smf.Track
	notes.Add(2*res, midi.NoteOn(0, 72, 100))
	notes.Add(res, midi.NoteOff(0, 72))
	notes.Close(0)

	log, _ := quietLogger()
	song, err := Parse("tempo.mid", bytes.NewReader(encode(t, cond, notes)), WithLogger(log))
	require.NoError(t, err)
	require.Len(t, song.Notes, 1)
	// One beat at 120 (0.5s) then one beat at 60 (1s).
	require.InDelta(t, 1.5, song.Notes[0].Time, 1e-9)
	require.InDelta(t, 1.0, song.Notes[0].Duration, 1e-9)
}

func TestParseDefaultsTo120BPMWithoutTempo(t *testing.T) {
	var tr smf.Track
	tr.Add(res, midi.NoteOn(0, 60, 100))
	tr.Add(res, midi.NoteOff(0, 60))
	tr.Close(0)

	log, _ := quietLogger()
	song, err := Parse("plain.mid", bytes.NewReader(encode(t, tr)), WithLogger(log))
	require.NoError(t, err)
	require.Equal(t, 120.0, song.TempoBPM)
	require.InDelta(t, 0.5, song.Notes[0].Time, 1e-9)
}

func TestParsePairsOverlappingSameKeyFirstInFirstOut(t *testing.T) {
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(res/2, midi.NoteOn(0, 60, 50))
	tr.Add(res/2, midi.NoteOff(0, 60))
	tr.Add(res/2, midi.NoteOff(0, 60))
	tr.Close(0)

	log, hook := quietLogger()
	song, err := Parse("overlap.mid", bytes.NewReader(encode(t, tempoTrack(120), tr)), WithLogger(log))
	require.NoError(t, err)
	require.Empty(t, hook.AllEntries())
	require.Len(t, song.Notes, 2)
	require.InDelta(t, 0.5, song.Notes[0].Duration, 1e-9)
	require.Equal(t, 100, song.Notes[0].Velocity)
	require.InDelta(t, 0.25, song.Notes[1].Time, 1e-9)
	require.InDelta(t, 0.5, song.Notes[1].Duration, 1e-9)
}

func TestParseRecoversFromUnbalancedNotes(t *testing.T) {
	var tr smf.Track
	tr.Add(0, midi.NoteOff(0, 62)) // never pressed
	tr.Add(0, midi.NoteOn(0, 65, 100))
	tr.Add(res*4, midi.NoteOn(0, 67, 100))
	tr.Close(0) // neither note released

	log, hook := quietLogger()
	song, err := Parse("broken.mid", bytes.NewReader(encode(t, tempoTrack(120), tr)), WithLogger(log))
	require.NoError(t, err)
	require.Len(t, song.Notes, 2)
	require.InDelta(t, 2.0, song.Notes[0].Duration, 1e-9)
	require.InDelta(t, 0.0, song.Notes[1].Duration, 1e-9)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	var unpressed, missing int
	for _, e := range entries {
		require.Equal(t, logrus.WarnLevel, e.Level)
		require.Equal(t, "broken.mid", e.Data["file"])
		switch {
		case strings.Contains(e.Message, "unpressed note: D4"):
			unpressed++
		case strings.Contains(e.Message, "missing note off"):
			missing++
		}
	}
	require.Equal(t, 1, unpressed)
	require.Equal(t, 2, missing)
}

func TestParseEmptySong(t *testing.T) {
	log, _ := quietLogger()
	song, err := Parse("empty.mid", bytes.NewReader(encode(t, tempoTrack(90))), WithLogger(log))
	require.NoError(t, err)
	require.Empty(t, song.Notes)
	require.Equal(t, 90.0, song.TempoBPM)
	_, _, ok := song.Range()
	require.False(t, ok)
	require.Zero(t, song.End())
}

func TestParseKeepsNominalTempo(t *testing.T) {
	for _, bpm := range []float64{90, 140, 133.5} {
		log, _ := quietLogger()
		song, err := Parse("tempo.mid", bytes.NewReader(encode(t, tempoTrack(bpm))), WithLogger(log))
		require.NoError(t, err)
		require.Equal(t, bpm, song.TempoBPM)
	}
}

func TestParseRejectsSMPTETime(t *testing.T) {
	s := smf.NewSMF1()
	s.TimeFormat = smf.SMPTE25(40)
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(40, midi.NoteOff(0, 60))
	tr.Close(0)
	require.NoError(t, s.Add(tr))
	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		_, err = Parse("smpte.mid", &buf)
	})
	require.ErrorIs(t, err, ErrSMPTETime)
	require.Contains(t, err.Error(), "smpte.mid")
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("junk.mid", strings.NewReader("definitely not a midi file"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "junk.mid")
}

func TestLoad(t *testing.T) {
	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(res, midi.NoteOff(0, 60))
	tr.Close(0)

	dir := t.TempDir()
	path := filepath.Join(dir, "take1.MID")
	require.NoError(t, os.WriteFile(path, encode(t, tr), 0o644))

	log, _ := quietLogger()
	song, err := Load(path, WithLogger(log))
	require.NoError(t, err)
	require.Equal(t, "take1.MID", song.Name)
	require.Len(t, song.Notes, 1)

	_, err = Load(filepath.Join(dir, "take1.txt"))
	require.True(t, errors.Is(err, ErrUnsupportedFile))

	_, err = Load(filepath.Join(dir, "missing.mid"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNoteName(t *testing.T) {
	cases := map[int]string{0: "C-1", 21: "A0", 60: "C4", 61: "C#4", 69: "A4", 127: "G9"}
	for midi, want := range cases {
		require.Equal(t, want, NoteName(midi), "midi %d", midi)
	}
}

func TestIsMIDIFile(t *testing.T) {
	require.True(t, IsMIDIFile("a.mid"))
	require.True(t, IsMIDIFile("/x/B.MIDI"))
	require.False(t, IsMIDIFile("a.mp3"))
	require.False(t, IsMIDIFile("mid"))
}
