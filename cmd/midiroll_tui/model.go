package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/midiroll-go"
	"github.com/cbegin/midiroll-go/internal/midifile"
	"github.com/cbegin/midiroll-go/internal/roll"
	"github.com/cbegin/midiroll-go/internal/textroll"
)

const (
	tickInterval = 50 * time.Millisecond
	minSPC       = 0.025
	maxSPC       = 1.6
	volumeStep   = 0.05
	headerLines  = 2
	footerLines  = 3
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
)

// playback is the part of *midiroll.Player the view drives.
type playback interface {
	Toggle() error
	Seek(t float64) error
	Position() float64
	Duration() float64
	IsPlaying() bool
	Song() *midifile.Song
	MIDIVolume() float64
	SetMIDIVolume(v float64)
	AudioVolume() float64
	SetAudioVolume(v float64)
}

type tickMsg time.Time

type model struct {
	pl     playback
	events <-chan midiroll.PlaybackEvent
	lines  []string
	roll   *roll.Roll
	view   textroll.View
	top    int // index into roll.Pitches() of the first drawn row
	step   float64
	follow bool

	pos    float64
	width  int
	height int

	status    string
	statusErr bool
}

func newModel(pl playback, events <-chan midiroll.PlaybackEvent, lines []string, seekStep float64, follow bool) model {
	var notes []midifile.Note
	if s := pl.Song(); s != nil {
		notes = s.Notes
	}
	return model{
		pl:     pl,
		events: events,
		lines:  lines,
		roll:   roll.New(notes, roll.Options{}),
		view:   textroll.View{SecondsPerCol: 0.1},
		step:   seekStep,
		follow: follow,
		width:  80,
		height: 24,
		status: "Ready",
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampTop()
		return m, nil
	case tickMsg:
		m.drainEvents()
		m.refresh()
		return m, tickCmd()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "space":
		if err := m.pl.Toggle(); err != nil {
			m.setError(err.Error())
			break
		}
		if m.pl.IsPlaying() {
			m.setStatus("Playing")
		} else {
			m.setStatus("Paused")
		}
	case "left", "h":
		m.seek(m.pl.Position() - m.step)
	case "right", "l":
		m.seek(m.pl.Position() + m.step)
	case "home", "0":
		m.seek(0)
	case "end":
		m.seek(m.pl.Duration())
	case "up", "k":
		m.top--
		m.clampTop()
	case "down", "j":
		m.top++
		m.clampTop()
	case "+", "=":
		m.view.SecondsPerCol = math.Max(minSPC, m.view.SecondsPerCol/2)
		m.refresh()
	case "-", "_":
		m.view.SecondsPerCol = math.Min(maxSPC, m.view.SecondsPerCol*2)
		m.refresh()
	case "[":
		m.pl.SetMIDIVolume(math.Max(0, m.pl.MIDIVolume()-volumeStep))
	case "]":
		m.pl.SetMIDIVolume(math.Min(1, m.pl.MIDIVolume()+volumeStep))
	case "{":
		m.pl.SetAudioVolume(math.Max(0, m.pl.AudioVolume()-volumeStep))
	case "}":
		m.pl.SetAudioVolume(math.Min(1, m.pl.AudioVolume()+volumeStep))
	case "f":
		m.follow = !m.follow
		m.setStatus(fmt.Sprintf("Follow playhead: %v", m.follow))
	}
	return m, nil
}

func (m *model) drainEvents() {
	for {
		select {
		case ev, ok := <-m.events:
			if !ok {
				return
			}
			if ev.Kind == midiroll.EventPlaybackEnded {
				m.setStatus("Playback ended")
			}
		default:
			return
		}
	}
}

func (m *model) seek(t float64) {
	if err := m.pl.Seek(t); err != nil {
		m.setError(err.Error())
		return
	}
	m.refresh()
	m.view.Follow(m.pos)
}

// refresh samples the player position and pages the view when following.
func (m *model) refresh() {
	m.pos = m.pl.Position()
	m.view.Columns = max(1, m.width-textroll.LabelWidth)
	m.view.Playhead = m.pos
	if m.follow {
		m.view.Follow(m.pos)
	}
}

func (m *model) rows() int {
	return max(1, m.height-headerLines-footerLines-1)
}

func (m *model) clampTop() {
	m.top = max(0, min(m.top, m.roll.Rows()-m.rows()))
	if pitches := m.roll.Pitches(); len(pitches) > 0 {
		m.view.TopPitch = pitches[m.top]
	}
}

func (m model) View() string {
	var b strings.Builder
	title := "midiroll"
	if len(m.lines) > 0 {
		title += "  " + strings.Join(m.lines, "  |  ")
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	v := m.view
	v.Rows = m.rows()
	v.Columns = max(1, m.width-textroll.LabelWidth)
	if m.roll.Empty() {
		b.WriteString("No MIDI notes loaded.")
	} else {
		b.WriteString(textroll.Render(m.roll, v))
	}
	b.WriteString("\n\n")

	state := "■"
	if m.pl.IsPlaying() {
		state = "▶"
	}
	b.WriteString(timeStyle.Render(fmt.Sprintf("%s %s / %s", state, midiroll.FormatTime(m.pos), midiroll.FormatTime(m.pl.Duration()))))
	b.WriteString(fmt.Sprintf("  MIDI %3d%%  Audio %3d%%  ", percent(m.pl.MIDIVolume()), percent(m.pl.AudioVolume())))
	if m.statusErr {
		b.WriteString(errorStyle.Render(m.status))
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space play/pause  ←/→ seek  home start  ↑/↓ pitch  +/- zoom  [/] midi  {/} audio  f follow  q quit"))
	return b.String()
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}

func (m *model) setError(msg string) {
	m.status = msg
	m.statusErr = true
}

func (m *model) setStatus(msg string) {
	m.status = msg
	m.statusErr = false
}
