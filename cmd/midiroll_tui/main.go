// Command midiroll_tui plays a MIDI file and optional recording with a
// scrolling text piano roll in the terminal.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/midiroll-go/internal/app"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default $MIDIROLL_CONFIG or ~/.config/midiroll/config.toml)")
		midiPath   = flag.String("midi", "", "MIDI file (.mid/.midi)")
		audioPath  = flag.String("audio", "", "reference recording (.wav/.mp3)")
		logPath    = flag.String("log", "", "write logs to this file")
	)
	flag.Parse()
	if *midiPath == "" && *audioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: midiroll_tui -midi song.mid [-audio take.wav]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		logOut = f
	}
	cfg, logger, err := app.Setup(*configPath, logOut)
	if err != nil {
		log.Fatal(err)
	}

	pl, err := app.NewPlayer(cfg, logger, *midiPath, *audioPath)
	if err != nil {
		log.Fatal(err)
	}
	defer pl.Close()

	m := newModel(pl, pl.Watch(), app.StatusLines(pl), cfg.UI.SeekStep, cfg.Roll.FollowPlayhead)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		logger.WithError(err).Error("terminal ui")
		fmt.Println("error:", err)
	}
}
