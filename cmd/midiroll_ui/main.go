// Command midiroll_ui is the desktop piano-roll player: a file list, the
// roll with a following playhead, and a mixer for the synth and recording.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/cbegin/midiroll-go/internal/app"
	"github.com/cbegin/midiroll-go/internal/audiofile"
	"github.com/cbegin/midiroll-go/internal/config"
	"github.com/cbegin/midiroll-go/internal/midifile"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default $MIDIROLL_CONFIG or ~/.config/midiroll/config.toml)")
		midiPath   = flag.String("midi", "", "MIDI file to open")
		audioPath  = flag.String("audio", "", "reference recording to open")
	)
	flag.Parse()
	for _, arg := range flag.Args() {
		switch {
		case midifile.IsMIDIFile(arg):
			*midiPath = arg
		case audiofile.IsAudioFile(arg):
			*audioPath = arg
		default:
			log.Fatalf("%s: unsupported file type", arg)
		}
	}

	cfg, logger, err := app.Setup(*configPath, os.Stderr)
	if err != nil {
		log.Fatal(err)
	}
	savePath := *configPath
	if savePath == "" {
		savePath = config.Path()
	}

	cwd := cfg.UI.StartDir
	for _, p := range []string{*audioPath, *midiPath} {
		if p != "" {
			cwd = filepath.Dir(p)
		}
	}
	if cwd, err = filepath.Abs(cwd); err != nil {
		logger.Fatal(err)
	}

	g, err := newGame(cfg, savePath, logger, *midiPath, *audioPath, cwd)
	if err != nil {
		logger.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(cfg.UI.WindowWidth, cfg.UI.WindowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("midiroll")
	if err := ebiten.RunGame(g); err != nil {
		logger.Error(err)
	}
}
