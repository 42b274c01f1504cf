package textroll

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbegin/midiroll-go/internal/midifile"
	"github.com/cbegin/midiroll-go/internal/roll"
)

func sampleRoll() *roll.Roll {
	return roll.New([]midifile.Note{
		{Midi: 60, Time: 0, Duration: 0.5},
		{Midi: 64, Time: 0.3, Duration: 0.2},
	}, roll.Options{})
}

func TestRender(t *testing.T) {
	out := Render(sampleRoll(), View{Columns: 10, SecondsPerCol: 0.1, Playhead: 0.25})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	require.Equal(t, "     |0s       ", lines[0])
	require.Equal(t, "E4   ··│██·····", lines[1])
	require.Equal(t, "D#4  ··│·······", lines[2])
	require.Equal(t, "C4   ██┃██·····", lines[5])
}

func TestRenderHidesPlayhead(t *testing.T) {
	out := Render(sampleRoll(), View{Columns: 10, Playhead: -1})
	require.NotContains(t, out, string(glyphPlayhead))
	require.NotContains(t, out, string(glyphOnHead))

	out = Render(sampleRoll(), View{Columns: 10, Start: 2, Playhead: 0.25})
	require.NotContains(t, out, string(glyphPlayhead))
}

func TestRenderWindow(t *testing.T) {
	out := Render(sampleRoll(), View{Columns: 4, SecondsPerCol: 0.1, Start: 0.3, TopPitch: 62, Rows: 2, Playhead: -1})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[1], "D4"))
	require.True(t, strings.HasPrefix(lines[2], "C#4"))
	require.Equal(t, "····", strings.TrimSpace(lines[1][LabelWidth:]))
}

func TestRenderNoteStartingMidWindow(t *testing.T) {
	out := Render(sampleRoll(), View{Columns: 4, SecondsPerCol: 0.1, Start: 0.3, Playhead: -1})
	lines := strings.Split(out, "\n")
	require.Equal(t, "C4   ██··", lines[len(lines)-1])
	require.Equal(t, "E4   ██··", lines[1])
}

func TestRenderEmpty(t *testing.T) {
	require.Empty(t, Render(roll.New(nil, roll.Options{}), View{Columns: 10}))
	require.Empty(t, Render(sampleRoll(), View{}))
}

func TestColumnAndFollow(t *testing.T) {
	v := View{Columns: 20, SecondsPerCol: 0.5}
	require.Equal(t, 0, v.Column(0))
	require.Equal(t, 6, v.Column(3))
	require.Equal(t, -1, v.Column(10))
	require.Equal(t, -1, v.Column(-1))

	v.Follow(12)
	require.Equal(t, 12.0, v.Start)
	v.Follow(13)
	require.Equal(t, 12.0, v.Start)
	v.Follow(1)
	require.Equal(t, 1.0, v.Start)
}

func TestRulerLabels(t *testing.T) {
	v := View{Columns: 30, SecondsPerCol: 0.5, Start: 58.5}
	r := ruler(v)
	require.Len(t, r, 30)
	require.Equal(t, "|59s", r[1:5])
	require.Equal(t, "  ", r[5:7])
	require.Equal(t, "|1:02", r[7:12])
}
