package midiroll

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/cbegin/midiroll-go/internal/audiofile"
	intfx "github.com/cbegin/midiroll-go/internal/effects"
	"github.com/cbegin/midiroll-go/internal/midifile"
	"github.com/cbegin/midiroll-go/internal/synth"
	"github.com/cbegin/midiroll-go/internal/transport"
)

// gain is a float32 scalar readable from the audio thread without locking.
type gain struct{ bits atomic.Uint32 }

func (g *gain) Store(v float64) {
	if v < 0 {
		v = 0
	}
	g.bits.Store(math.Float32bits(float32(v)))
}

func (g *gain) Load() float32 { return math.Float32frombits(g.bits.Load()) }

// mixer renders the synth bus and the audio clip against one transport.
// Frame n of the transport is frame n of the clip, which keeps notes and
// recording sample-aligned. It implements the audio SampleSource and
// FinishingSource interfaces.
type mixer struct {
	mu        sync.Mutex
	tr        *transport.Transport
	engine    *synth.Engine
	baseGain  float64
	synthFX   *intfx.Chain
	limiter   *intfx.Limiter
	clip      *audiofile.Clip
	endFrame  int64
	hasEnd    bool
	onNote    func(midifile.Note)
	onEnd     func()
	sampleTap func([]float32)

	midiVolume   gain
	audioVolume  gain
	masterVolume gain
	ended        atomic.Bool
}

func newMixer(sampleRate int, params synth.Params, synthFX *intfx.Chain) *mixer {
	m := &mixer{
		tr:       transport.New(sampleRate),
		engine:   synth.New(sampleRate, params),
		baseGain: params.MasterGain,
		synthFX:  synthFX,
		limiter:  intfx.NewLimiter(sampleRate, -0.3, 80),
	}
	m.midiVolume.Store(1)
	m.audioVolume.Store(1)
	m.masterVolume.Store(1)
	return m
}

func (m *mixer) setMIDIVolume(v float64) {
	m.midiVolume.Store(v)
	m.engine.SetMasterGain(m.baseGain * float64(m.midiVolume.Load()))
}

// rewind moves the transport to seconds, drops every pending callback and
// silences the synth bus.
func (m *mixer) rewind(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tr.ClearAll()
	m.tr.SetSeconds(seconds)
	m.engine.Reset()
	if m.synthFX != nil {
		m.synthFX.Reset()
	}
	m.limiter.Reset()
	m.ended.Store(false)
}

func (m *mixer) setEnd(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endFrame = m.tr.FrameAt(seconds)
	m.hasEnd = true
}

func (m *mixer) setClip(c *audiofile.Clip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clip = c
}

// scheduleFrom queues a trigger for every note starting at or after from.
// The note-off is queued when its note-on fires.
func (m *mixer) scheduleFrom(notes []midifile.Note, from float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, note := range notes {
		if note.Time < from {
			continue
		}
		m.tr.Schedule(note.Time, func() {
			id := m.engine.NoteOn(note.Midi, note.Velocity)
			m.tr.Schedule(note.End(), func() { m.engine.NoteOff(id) })
			if m.onNote != nil {
				m.onNote(note)
			}
		})
		n++
	}
	return n
}

func (m *mixer) Process(dst []float32) {
	m.mu.Lock()
	audioVol := m.audioVolume.Load()
	masterVol := m.masterVolume.Load()
	reachedEnd := false
	i := 0
	for ; i+1 < len(dst); i += 2 {
		frame := m.tr.Frame()
		if m.hasEnd && frame >= m.endFrame {
			reachedEnd = true
			break
		}
		m.tr.Tick()
		l, r := m.engine.RenderFrame()
		if m.synthFX != nil {
			l, r = m.synthFX.Process(l, r)
		}
		cl, cr := m.clip.Frame(int(frame))
		l = (l + cl*audioVol) * masterVol
		r = (r + cr*audioVol) * masterVol
		dst[i], dst[i+1] = m.limiter.Process(l, r)
	}
	clear(dst[i:])
	tap := m.sampleTap
	onEnd := m.onEnd
	m.mu.Unlock()

	if tap != nil {
		tap(dst)
	}
	if reachedEnd && m.ended.CompareAndSwap(false, true) && onEnd != nil {
		onEnd()
	}
}

func (m *mixer) Finished() bool {
	return m.ended.Load()
}
