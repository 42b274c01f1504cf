// Package transport keeps the shared playback clock as a frame cursor and a
// timeline of callbacks keyed to it. The cursor is advanced by the audio
// render loop, so callbacks run on the audio goroutine in frame order.
package transport

import (
	"math"
	"sort"
)

// ID identifies a scheduled callback.
type ID int

type event struct {
	id    ID
	frame int64
	fn    func()
}

// Transport is not safe for concurrent use; the owner serializes access.
type Transport struct {
	sampleRate int
	frame      int64
	nextID     ID
	events     []event // sorted by frame, then scheduling order
}

func New(sampleRate int) *Transport {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &Transport{sampleRate: sampleRate, nextID: 1}
}

func (t *Transport) SampleRate() int { return t.sampleRate }

// FrameAt converts seconds to a frame index on this transport's clock.
func (t *Transport) FrameAt(seconds float64) int64 {
	if seconds <= 0 {
		return 0
	}
	return int64(math.Round(seconds * float64(t.sampleRate)))
}

// Schedule registers fn to run when the cursor reaches at seconds. Times in
// the past run on the next Tick.
func (t *Transport) Schedule(at float64, fn func()) ID {
	f := t.FrameAt(at)
	id := t.nextID
	t.nextID++
	i := sort.Search(len(t.events), func(i int) bool { return t.events[i].frame > f })
	t.events = append(t.events, event{})
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = event{id: id, frame: f, fn: fn}
	return id
}

// Clear removes a scheduled callback. It reports whether it was pending.
func (t *Transport) Clear(id ID) bool {
	for i := range t.events {
		if t.events[i].id == id {
			t.events = append(t.events[:i], t.events[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Transport) ClearAll() {
	t.events = t.events[:0]
}

func (t *Transport) Pending() int { return len(t.events) }

func (t *Transport) Frame() int64 { return t.frame }

func (t *Transport) Seconds() float64 {
	return float64(t.frame) / float64(t.sampleRate)
}

// SetSeconds moves the cursor. Callbacks that fall before the new cursor are
// dropped rather than fired.
func (t *Transport) SetSeconds(s float64) {
	t.frame = t.FrameAt(s)
	n := sort.Search(len(t.events), func(i int) bool { return t.events[i].frame >= t.frame })
	if n > 0 {
		t.events = append(t.events[:0], t.events[n:]...)
	}
}

// Tick fires every callback due at or before the cursor, then advances the
// cursor by one frame. A callback may schedule further callbacks; ones due
// immediately fire within the same Tick.
func (t *Transport) Tick() {
	for len(t.events) > 0 && t.events[0].frame <= t.frame {
		ev := t.events[0]
		t.events = t.events[1:]
		ev.fn()
	}
	t.frame++
}
