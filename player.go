// Package midiroll plays a MIDI transcription and its reference recording
// from one transport clock so the two can be compared by ear and by eye.
package midiroll

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	intaudio "github.com/cbegin/midiroll-go/internal/audio"
	"github.com/cbegin/midiroll-go/internal/audiofile"
	intfx "github.com/cbegin/midiroll-go/internal/effects"
	"github.com/cbegin/midiroll-go/internal/midifile"
	"github.com/cbegin/midiroll-go/internal/synth"
)

type EventKind int

const (
	// EventNote fires when a note is triggered on the synth.
	EventNote EventKind = iota
	// EventPlaybackEnded fires when the transport reaches Duration.
	EventPlaybackEnded
)

// PlaybackEvent is delivered on the Watch channel.
type PlaybackEvent struct {
	Kind EventKind
	Note midifile.Note // set for EventNote
}

// backend is the device side of playback: it pulls from the mixer and
// reports how much the listener has heard.
type backend interface {
	Play()
	Position() time.Duration
	Stop() error
}

type backendFactory func(sampleRate int, src intaudio.SampleSource) (backend, error)

func deviceBackend(sampleRate int, src intaudio.SampleSource) (backend, error) {
	pl, err := intaudio.NewPlayer(sampleRate, src)
	if err != nil {
		return nil, err
	}
	return pl, nil
}

type PlayerOption func(*playerConfig)

type playerConfig struct {
	synthParams  synth.Params
	synthFX      *intfx.Chain
	sampleTap    func([]float32)
	log          logrus.FieldLogger
	midiVolume   float64
	audioVolume  float64
	masterVolume float64
	newBackend   backendFactory
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		synthParams:  synth.DefaultParams(),
		log:          logrus.StandardLogger(),
		midiVolume:   1,
		audioVolume:  1,
		masterVolume: 1,
		newBackend:   deviceBackend,
	}
}

func WithSynthParams(p synth.Params) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.synthParams = p
	}
}

// WithSynthEffects inserts chain on the synth bus, before it is mixed with
// the recording.
func WithSynthEffects(chain *intfx.Chain) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.synthFX = chain
	}
}

// WithSampleTap installs a callback invoked with each mixed stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

func WithLogger(l logrus.FieldLogger) PlayerOption {
	return func(cfg *playerConfig) {
		if l != nil {
			cfg.log = l
		}
	}
}

func WithMIDIVolume(v float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.midiVolume = v
	}
}

func WithAudioVolume(v float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.audioVolume = v
	}
}

func WithMasterVolume(v float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.masterVolume = v
	}
}

func withBackend(f backendFactory) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.newBackend = f
	}
}

// Player owns the transport. Position is what the listener hears: the seek
// base plus the backend's played position. Pausing stops the backend at that
// position, so resuming realigns the transport with what was heard.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	log        logrus.FieldLogger
	mix        *mixer
	newBackend backendFactory
	audio      backend
	base       float64
	song       *midifile.Song
	clip       *audiofile.Clip
	eventCh    chan PlaybackEvent
	eventChMu  sync.Mutex
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Player{
		sampleRate: sampleRate,
		log:        cfg.log,
		newBackend: cfg.newBackend,
	}
	p.mix = newMixer(sampleRate, cfg.synthParams, cfg.synthFX)
	p.mix.sampleTap = cfg.sampleTap
	p.mix.onNote = func(n midifile.Note) {
		p.sendEvent(PlaybackEvent{Kind: EventNote, Note: n})
	}
	p.mix.onEnd = func() {
		p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	}
	p.mix.setMIDIVolume(cfg.midiVolume)
	p.mix.audioVolume.Store(cfg.audioVolume)
	p.mix.masterVolume.Store(cfg.masterVolume)
	return p, nil
}

func (p *Player) SampleRate() int { return p.sampleRate }

// SetSong replaces the MIDI notes. Playback stops and rewinds to 0.
func (p *Player) SetSong(s *midifile.Song) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.song = s
	p.rewindLocked(0)
	if s != nil {
		p.log.WithFields(logrus.Fields{"file": s.Name, "notes": len(s.Notes)}).Info("MIDI loaded")
	}
}

// SetClip replaces the reference recording. Playback stops and rewinds to 0.
func (p *Player) SetClip(c *audiofile.Clip) error {
	if c != nil && c.SampleRate != p.sampleRate {
		return fmt.Errorf("clip %s is %d Hz, player runs at %d Hz", c.Name, c.SampleRate, p.sampleRate)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.clip = c
	p.mix.setClip(c)
	p.rewindLocked(0)
	if c != nil {
		p.log.WithFields(logrus.Fields{"file": c.Name, "duration": FormatTime(c.Duration())}).Info("audio loaded")
	}
	return nil
}

func (p *Player) LoadMIDI(path string) error {
	s, err := midifile.Load(path, midifile.WithLogger(p.log))
	if err != nil {
		return err
	}
	p.SetSong(s)
	return nil
}

func (p *Player) LoadAudio(path string) error {
	c, err := audiofile.Load(path, p.sampleRate)
	if err != nil {
		return err
	}
	return p.SetClip(c)
}

func (p *Player) Song() *midifile.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.song
}

func (p *Player) Clip() *audiofile.Clip {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clip
}

// Duration is the recording length when one is loaded, else the end of the
// last note.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.durationLocked()
}

func (p *Player) durationLocked() float64 {
	if p.clip != nil {
		return p.clip.Duration()
	}
	return p.song.End()
}

// Play starts playback from the current position, scheduling every note
// that starts at or after it. At the end it starts over from 0.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil && !p.mix.Finished() {
		return nil
	}
	dur := p.durationLocked()
	if dur <= 0 {
		return errors.New("nothing loaded")
	}
	pos := p.positionLocked()
	p.stopLocked()
	if pos >= dur {
		pos = 0
	}
	p.rewindLocked(pos)
	return p.startLocked()
}

// Pause stops the backend at the heard position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return
	}
	pos := p.positionLocked()
	p.stopLocked()
	p.rewindLocked(pos)
}

func (p *Player) Toggle() error {
	if p.IsPlaying() {
		p.Pause()
		return nil
	}
	return p.Play()
}

// Seek moves playback to t seconds, clamped to [0, Duration]. Notes already
// sounding are cut; notes starting at or after t are rescheduled when
// playing.
func (p *Player) Seek(t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t = math.Max(0, math.Min(t, p.durationLocked()))
	playing := p.audio != nil && !p.mix.Finished()
	p.stopLocked()
	p.rewindLocked(t)
	if playing {
		return p.startLocked()
	}
	return nil
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio != nil && !p.mix.Finished()
}

// Position returns the playback position in seconds as heard.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) positionLocked() float64 {
	dur := p.durationLocked()
	if p.mix.Finished() {
		return dur
	}
	pos := p.base
	if p.audio != nil {
		pos += p.audio.Position().Seconds()
	}
	return math.Min(pos, dur)
}

func (p *Player) rewindLocked(t float64) {
	p.base = t
	p.mix.rewind(t)
	p.mix.setEnd(p.durationLocked())
}

func (p *Player) startLocked() error {
	var notes []midifile.Note
	if p.song != nil {
		notes = p.song.Notes
	}
	n := p.mix.scheduleFrom(notes, p.base)
	backend, err := p.newBackend(p.sampleRate, p.mix)
	if err != nil {
		return fmt.Errorf("start audio: %w", err)
	}
	p.audio = backend
	p.audio.Play()
	p.log.WithFields(logrus.Fields{"from": FormatTime(p.base), "scheduled": n}).Debug("playback started")
	return nil
}

func (p *Player) stopLocked() {
	if p.audio == nil {
		return
	}
	if err := p.audio.Stop(); err != nil {
		p.log.WithError(err).Warn("stop audio")
	}
	p.audio = nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered; events are dropped rather than blocking the audio thread. Only
// the most recent Watch() channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 64)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMIDIVolume scales the synth bus. 1.0 is unity; negatives clamp to 0.
func (p *Player) SetMIDIVolume(v float64) { p.mix.setMIDIVolume(v) }

func (p *Player) MIDIVolume() float64 { return float64(p.mix.midiVolume.Load()) }

// SetAudioVolume scales the recording.
func (p *Player) SetAudioVolume(v float64) { p.mix.audioVolume.Store(v) }

func (p *Player) AudioVolume() float64 { return float64(p.mix.audioVolume.Load()) }

// SetMasterVolume scales the summed mix ahead of the limiter.
func (p *Player) SetMasterVolume(v float64) { p.mix.masterVolume.Store(v) }

func (p *Player) MasterVolume() float64 { return float64(p.mix.masterVolume.Load()) }

// Close stops playback and releases the audio backend.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	return err
}

// FormatTime renders seconds as m:ss.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
