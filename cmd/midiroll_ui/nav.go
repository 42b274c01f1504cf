package main

import (
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cbegin/midiroll-go/internal/audiofile"
	"github.com/cbegin/midiroll-go/internal/midifile"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

type navEntry struct {
	name  string
	path  string
	isDir bool
}

func playable(name string) bool {
	return midifile.IsMIDIFile(name) || audiofile.IsAudioFile(name)
}

// listDir returns ".." (unless dir is a root), then subdirectories, then
// playable files, each group sorted case-insensitively.
func listDir(dir string) ([]navEntry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dirs, files []navEntry
	for _, it := range items {
		name := it.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(dir, name)
		switch {
		case it.IsDir():
			dirs = append(dirs, navEntry{name: name, path: full, isDir: true})
		case playable(name):
			files = append(files, navEntry{name: name, path: full})
		}
	}
	byName := func(s []navEntry) {
		sort.Slice(s, func(i, j int) bool { return strings.ToLower(s[i].name) < strings.ToLower(s[j].name) })
	}
	byName(dirs)
	byName(files)

	var out []navEntry
	if parent := filepath.Dir(dir); parent != dir {
		out = append(out, navEntry{name: "..", path: parent, isDir: true})
	}
	out = append(out, dirs...)
	return append(out, files...), nil
}

func (g *game) refreshNav() error {
	nav, err := listDir(g.cwd)
	if err != nil {
		return err
	}
	g.nav = nav
	return nil
}

func (g *game) navTop(rect image.Rectangle) int {
	return rect.Min.Y + 12 + lineH*2
}

func (g *game) drawNavigator(screen *ebiten.Image, rect image.Rectangle) {
	g.drawText(screen, "Files", rect.Min.X+8, rect.Min.Y+8)
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenMiddle(g.cwd, maxChars), rect.Min.X+8, rect.Min.Y+8+lineH)

	top := g.navTop(rect)
	maxLines := max(1, (rect.Dy()-lineH*2-18)/lineH)
	g.navScroll = max(0, min(g.navScroll, len(g.nav)-maxLines))

	for i := 0; i < maxLines; i++ {
		idx := g.navScroll + i
		if idx >= len(g.nav) {
			break
		}
		entry := g.nav[idx]
		y := top + i*lineH
		if !entry.isDir && (samePath(entry.path, g.midiPath) || samePath(entry.path, g.audioPath)) {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+6), float64(y-2), float64(rect.Dx()-12), float64(lineH+2), highlightColor)
		}
		txt := entry.name
		if entry.isDir && entry.name != ".." {
			txt += "/"
		}
		g.drawText(screen, shortenEnd(txt, maxChars-1), rect.Min.X+10, y)
	}
}

// clickNavigator enters directories and loads files. A MIDI file replaces the
// roll; an audio file replaces the reference track. Double-clicking a file
// starts playback.
func (g *game) clickNavigator(my int, rect image.Rectangle) {
	if my < g.navTop(rect) {
		return
	}
	idx := g.navScroll + (my-g.navTop(rect))/lineH
	if idx < 0 || idx >= len(g.nav) {
		return
	}
	entry := g.nav[idx]
	if entry.isDir {
		g.cwd = entry.path
		g.navScroll = 0
		if err := g.refreshNav(); err != nil {
			g.setError(err.Error())
			return
		}
		g.setStatus("Directory: " + g.cwd)
		return
	}

	doubleClickSame := samePath(entry.path, g.lastNavPath) && (g.frameTick-g.lastNavClickTick) <= 18
	g.lastNavPath = entry.path
	g.lastNavClickTick = g.frameTick

	if doubleClickSame {
		g.play()
		return
	}
	if err := g.loadFile(entry.path); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Loaded " + filepath.Base(entry.path))
}

func (g *game) loadFile(path string) error {
	switch {
	case midifile.IsMIDIFile(path):
		if err := g.player.LoadMIDI(path); err != nil {
			return err
		}
		g.midiPath = path
		g.rebuildRoll()
	case audiofile.IsAudioFile(path):
		if err := g.player.LoadAudio(path); err != nil {
			return err
		}
		g.audioPath = path
		g.view.Content = g.contentWidth()
	default:
		return audiofile.ErrUnsupportedFile
	}
	g.view.Offset = 0
	g.scope.Reset()
	return nil
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
