package main

import (
	"fmt"
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/midiroll-go"
	"github.com/cbegin/midiroll-go/internal/app"
	"github.com/cbegin/midiroll-go/internal/config"
	"github.com/cbegin/midiroll-go/internal/midifile"
	"github.com/cbegin/midiroll-go/internal/roll"
)

const (
	minWindowW = 980
	minWindowH = 680
)

const (
	dragNone = iota
	dragSeek
	dragMIDI
	dragAudio
	dragMaster
)

var mixerLabels = [3]string{"MIDI", "Audio", "Main"}

type game struct {
	cfg     config.Config
	cfgPath string
	log     logrus.FieldLogger
	player  *midiroll.Player
	events  <-chan midiroll.PlaybackEvent
	scope   *scope

	roll      *roll.Roll
	view      roll.Viewport
	rowScroll int
	follow    bool
	hover     midifile.Note
	hovering  bool

	dragging     int
	scrub        float64
	volumesDirty bool

	status    string
	statusErr bool

	midiPath  string
	audioPath string

	cwd              string
	nav              []navEntry
	navScroll        int
	frameTick        int
	lastNavPath      string
	lastNavClickTick int

	scopeImg *ebiten.Image
	scopeW   int
	scopeH   int
	wavePeak float64
	levelL   float64
	levelR   float64

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(cfg config.Config, cfgPath string, log logrus.FieldLogger, midiPath, audioPath, cwd string) (*game, error) {
	sc := newScope()
	pl, err := app.NewPlayer(cfg, log, midiPath, audioPath, midiroll.WithSampleTap(sc.Tap))
	if err != nil {
		return nil, err
	}
	g := &game{
		cfg:       cfg,
		cfgPath:   cfgPath,
		log:       log,
		player:    pl,
		events:    pl.Watch(),
		scope:     sc,
		follow:    cfg.Roll.FollowPlayhead,
		status:    "Ready",
		midiPath:  midiPath,
		audioPath: audioPath,
		cwd:       cwd,
		textCache: make(map[string]*ebiten.Image, 1024),
		viewW:     cfg.UI.WindowWidth,
		viewH:     cfg.UI.WindowHeight,
	}
	g.rebuildRoll()
	if err := g.refreshNav(); err != nil {
		g.setError(err.Error())
	}
	return g, nil
}

func (g *game) Update() error {
	g.frameTick++
	g.pollEvents()
	g.handleKeys()
	g.handleMouse()
	if g.follow && g.player.IsPlaying() && g.dragging != dragSeek {
		g.view.Follow(g.roll.X(g.player.Position()))
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()
	pos := g.displayPosition()

	g.drawSunkenPanel(screen, l.nav)
	g.drawNavigator(screen, l.nav)
	g.drawPanel(screen, l.mixer)
	g.drawMixer(screen, l.mixer)

	g.drawSunkenPanel(screen, l.info)
	g.drawInfo(screen, l.info)
	g.drawSunkenPanel(screen, l.roll)
	g.drawRoll(screen, l.roll, pos)
	g.drawDarkPanel(screen, l.scope)
	g.drawScope(screen, l.scope)

	g.drawButton(screen, l.play, g.playButtonLabel())
	g.drawSunkenPanel(screen, l.time)
	g.drawText(screen, midiroll.FormatTime(pos)+" / "+midiroll.FormatTime(g.player.Duration()), l.time.Min.X+8, l.time.Min.Y+8)
	g.drawPanel(screen, l.seek)
	g.drawSeekBar(screen, l.seek, pos)
	g.drawSunkenPanel(screen, l.status)
	g.drawStatus(screen, l.status)

	mx, my := ebiten.CursorPosition()
	g.drawTooltip(screen, mx, my)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	outsideW = max(outsideW, minWindowW)
	outsideH = max(outsideH, minWindowH)
	g.viewW = outsideW
	g.viewH = outsideH
	return outsideW, outsideH
}

// Close stops playback and saves the mixer levels if they were changed.
func (g *game) Close() {
	if err := g.player.Close(); err != nil {
		g.log.WithError(err).Warn("close player")
	}
	if !g.volumesDirty {
		return
	}
	a := g.cfg.Audio
	a.MIDIVolume = g.player.MIDIVolume()
	a.AudioVolume = g.player.AudioVolume()
	a.MasterVolume = g.player.MasterVolume()
	if err := config.SaveVolumes(g.cfgPath, a); err != nil {
		g.log.WithError(err).Warn("save volumes")
		return
	}
	g.log.WithField("path", g.cfgPath).Debug("volumes saved")
}

func (g *game) pollEvents() {
	for {
		select {
		case ev, ok := <-g.events:
			if !ok {
				return
			}
			if ev.Kind == midiroll.EventPlaybackEnded && !g.statusErr {
				g.status = "Playback ended"
			}
		default:
			return
		}
	}
}

func (g *game) handleKeys() {
	step := g.cfg.UI.SeekStep
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.togglePlayPause()
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		g.seek(g.player.Position() - step)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		g.seek(g.player.Position() + step)
	case inpututil.IsKeyJustPressed(ebiten.KeyHome):
		g.seek(0)
	case inpututil.IsKeyJustPressed(ebiten.KeyEnd):
		g.seek(g.player.Duration())
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		g.follow = !g.follow
		g.setStatus(fmt.Sprintf("Follow playhead: %v", g.follow))
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		g.rowScroll--
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		g.rowScroll++
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()
	area := rollAreas(l.roll)
	g.updateHover(mx, my, area)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case pointInRect(mx, my, l.play):
			g.togglePlayPause()
		case pointInRect(mx, my, l.seek):
			g.dragging = dragSeek
		case pointInRect(mx, my, l.mixer):
			if row := mixerRow(my, l.mixer); row >= 0 {
				g.dragging = dragMIDI + row
			}
		case pointInRect(mx, my, l.nav):
			g.clickNavigator(my, l.nav)
		case pointInRect(mx, my, area.notes), pointInRect(mx, my, area.ruler):
			x, _ := g.rollPoint(mx, my, area)
			g.seek(g.roll.TimeAt(x))
		}
	}

	switch g.dragging {
	case dragSeek:
		g.scrub = sliderFrac(mx, seekTrack(l.seek)) * g.player.Duration()
		if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
			g.dragging = dragNone
			g.seek(g.scrub)
		}
	case dragMIDI, dragAudio, dragMaster:
		row := g.dragging - dragMIDI
		g.setVolume(row, sliderFrac(mx, sliderTrack(mixerRowRect(row, l.mixer), 130)))
		if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
			g.dragging = dragNone
		}
	}

	wx, wy := ebiten.Wheel()
	if wx == 0 && wy == 0 {
		return
	}
	switch {
	case pointInRect(mx, my, l.nav):
		g.navScroll = max(0, g.navScroll-int(wy*2))
	case pointInRect(mx, my, l.roll):
		if ebiten.IsKeyPressed(ebiten.KeyShift) {
			wx, wy = wy, 0
		}
		g.view.Scroll(-wx * 40)
		g.rowScroll -= int(wy * 2)
		g.clampRowScroll(area)
	}
}

type uiLayout struct {
	nav, mixer, info, roll, scope image.Rectangle
	play, time, seek, status      image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w := max(g.viewW, minWindowW)
	h := max(g.viewH, minWindowH)

	pad := 20
	rowH := 44
	statusH := 40

	statusTop := h - pad - statusH
	controlsTop := statusTop - 8 - rowH

	// Left column: files over the mixer.
	navW := 280
	mixerH := 120
	navBottom := controlsTop - 12
	mixerTop := navBottom - mixerH
	navRect := image.Rect(pad, pad, pad+navW, mixerTop-8)
	mixerRect := image.Rect(pad, mixerTop, pad+navW, navBottom)

	// Right column: load status, roll, scope.
	rightX := navRect.Max.X + 12
	rightW := max(w-rightX-pad, 320)
	contentBottom := controlsTop - 12
	infoRect := image.Rect(rightX, pad, rightX+rightW, pad+lineH*2+16)
	scopeH := 110
	rollRect := image.Rect(rightX, infoRect.Max.Y+8, rightX+rightW, contentBottom-scopeH-12)
	scopeRect := image.Rect(rightX, rollRect.Max.Y+12, rightX+rightW, contentBottom)

	playRect := image.Rect(pad, controlsTop, pad+130, controlsTop+rowH)
	timeRect := image.Rect(playRect.Max.X+12, controlsTop, playRect.Max.X+12+220, controlsTop+rowH)
	seekRect := image.Rect(timeRect.Max.X+12, controlsTop, w-pad, controlsTop+rowH)

	statusRect := image.Rect(pad, statusTop, w-pad, statusTop+statusH)

	return uiLayout{
		nav: navRect, mixer: mixerRect, info: infoRect, roll: rollRect, scope: scopeRect,
		play: playRect, time: timeRect, seek: seekRect, status: statusRect,
	}
}

func mixerRowRect(row int, rect image.Rectangle) image.Rectangle {
	y := rect.Min.Y + 6 + row*36
	return image.Rect(rect.Min.X+4, y, rect.Max.X-4, y+36)
}

func mixerRow(my int, rect image.Rectangle) int {
	for i := range mixerLabels {
		r := mixerRowRect(i, rect)
		if my >= r.Min.Y && my < r.Max.Y {
			return i
		}
	}
	return -1
}

func (g *game) volume(row int) float64 {
	switch row {
	case 0:
		return g.player.MIDIVolume()
	case 1:
		return g.player.AudioVolume()
	}
	return g.player.MasterVolume()
}

func (g *game) setVolume(row int, v float64) {
	switch row {
	case 0:
		g.player.SetMIDIVolume(v)
	case 1:
		g.player.SetAudioVolume(v)
	default:
		g.player.SetMasterVolume(v)
	}
	g.volumesDirty = true
}

func (g *game) drawMixer(screen *ebiten.Image, rect image.Rectangle) {
	for i, name := range mixerLabels {
		r := mixerRowRect(i, rect)
		v := g.volume(i)
		g.drawText(screen, fmt.Sprintf("%-5s%3d%%", name, int(math.Round(v*100))), r.Min.X+4, r.Min.Y+(r.Dy()-lineH)/2)
		drawSlider(screen, sliderTrack(r, 130), v)
	}
}

func seekTrack(rect image.Rectangle) image.Rectangle {
	track := sliderTrack(rect, 16)
	track.Max.X = rect.Max.X - 16
	return track
}

func (g *game) drawSeekBar(screen *ebiten.Image, rect image.Rectangle, pos float64) {
	dur := g.player.Duration()
	frac := 0.0
	if dur > 0 {
		frac = pos / dur
	}
	drawSlider(screen, seekTrack(rect), frac)
}

func (g *game) drawInfo(screen *ebiten.Image, rect image.Rectangle) {
	lines := app.StatusLines(g.player)
	if len(lines) == 0 {
		lines = []string{"No files loaded"}
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	for i, line := range lines {
		g.drawText(screen, shortenMiddle(line, maxChars), rect.Min.X+8, rect.Min.Y+8+i*lineH)
	}
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := "Status: " + g.status
	if g.statusErr {
		msg = "Status: ERROR - " + g.status
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6)
}

// displayPosition is the scrub target while the seek bar is held.
func (g *game) displayPosition() float64 {
	if g.dragging == dragSeek {
		return g.scrub
	}
	return g.player.Position()
}

func (g *game) togglePlayPause() {
	if g.player.IsPlaying() {
		g.player.Pause()
		g.setStatus("Paused at " + midiroll.FormatTime(g.player.Position()))
		return
	}
	g.play()
}

func (g *game) play() {
	if err := g.player.Play(); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Playing")
}

func (g *game) seek(t float64) {
	if err := g.player.Seek(t); err != nil {
		g.setError(err.Error())
		return
	}
	g.scope.Reset()
	pos := g.player.Position()
	g.view.Follow(g.roll.X(pos))
	if !g.player.IsPlaying() {
		g.setStatus("Position " + midiroll.FormatTime(pos))
	}
}

func (g *game) playButtonLabel() string {
	if g.player.IsPlaying() {
		return "Pause"
	}
	return "Play"
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}
