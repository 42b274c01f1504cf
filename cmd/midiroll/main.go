package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/midiroll-go"
	"github.com/cbegin/midiroll-go/internal/app"
	"github.com/cbegin/midiroll-go/internal/audiofile"
	"github.com/cbegin/midiroll-go/internal/config"
	"github.com/cbegin/midiroll-go/internal/midifile"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default $MIDIROLL_CONFIG or ~/.config/midiroll/config.toml)")
		midiPath   = flag.String("midi", "", "MIDI file (.mid/.midi)")
		audioPath  = flag.String("audio", "", "reference recording (.wav/.mp3)")
		from       = flag.Float64("from", 0, "start position in seconds")
		midiVolume = flag.Float64("midi-volume", -1, "synth volume override")
		audioVol   = flag.Float64("audio-volume", -1, "recording volume override")
		notes      = flag.Bool("notes", false, "print each note as it is triggered")
		render     = flag.String("render", "", "render the mix to this WAV file instead of playing")
		seconds    = flag.Float64("seconds", 0, "with -render, seconds to render (0 = to the end)")
	)
	flag.Parse()
	if *midiPath == "" && *audioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: midiroll -midi song.mid [-audio take.wav]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, logger, err := app.Setup(*configPath, os.Stderr)
	if err != nil {
		log.Fatal(err)
	}
	if *midiVolume >= 0 {
		cfg.Audio.MIDIVolume = *midiVolume
	}
	if *audioVol >= 0 {
		cfg.Audio.AudioVolume = *audioVol
	}

	if *render != "" {
		if err := renderToFile(*render, cfg, logger, *midiPath, *audioPath, *from, *seconds); err != nil {
			logger.Fatal(err)
		}
		return
	}

	pl, err := app.NewPlayer(cfg, logger, *midiPath, *audioPath)
	if err != nil {
		logger.Fatal(err)
	}
	defer pl.Close()
	for _, line := range app.StatusLines(pl) {
		fmt.Println(line)
	}

	ch := pl.Watch()
	if err := pl.Seek(*from); err != nil {
		logger.Fatal(err)
	}
	if err := pl.Play(); err != nil {
		logger.Fatal(err)
	}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	dur := midiroll.FormatTime(pl.Duration())
	for {
		select {
		case event := <-ch:
			switch event.Kind {
			case midiroll.EventNote:
				if *notes {
					n := event.Note
					fmt.Printf("%s / %s  %-4s vel=%-3d dur=%.2fs\n",
						midiroll.FormatTime(n.Time), dur, n.Name(), n.Velocity, n.Duration)
				}
			case midiroll.EventPlaybackEnded:
				fmt.Println("playback completed")
				return
			}
		case <-interrupt:
			fmt.Printf("stopped at %s / %s\n", midiroll.FormatTime(pl.Position()), dur)
			return
		}
	}
}

func renderToFile(out string, cfg config.Config, logger *logrus.Logger, midiPath, audioPath string, from, seconds float64) error {
	opts, err := app.PlayerOptions(cfg, logger)
	if err != nil {
		return err
	}
	sampleRate := cfg.Audio.SampleRate
	var (
		song *midifile.Song
		clip *audiofile.Clip
	)
	if midiPath != "" {
		if song, err = midifile.Load(midiPath, midifile.WithLogger(logger)); err != nil {
			return err
		}
	}
	if audioPath != "" {
		if clip, err = audiofile.Load(audioPath, sampleRate); err != nil {
			return err
		}
	}
	if seconds <= 0 {
		end := song.End()
		if clip != nil {
			end = clip.Duration()
		}
		seconds = end - from
	}
	if seconds <= 0 {
		return fmt.Errorf("nothing to render after %s", midiroll.FormatTime(from))
	}
	samples := midiroll.RenderMix(song, clip, sampleRate, from, seconds, opts...)
	if err := os.WriteFile(out, midiroll.EncodeWAVFloat32LE(samples, sampleRate, 2), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s)\n", out, midiroll.FormatTime(seconds))
	return nil
}
