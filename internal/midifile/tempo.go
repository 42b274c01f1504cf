package midifile

import (
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

const defaultBPM = 120.0

type tempoPoint struct {
	tick      int64
	micros    float64 // absolute microseconds at tick
	usPerTick float64
	bpm       float64
}

// tickClock converts absolute ticks to seconds across tempo changes from
// every track of the file.
type tickClock struct {
	resolution int
	points     []tempoPoint
}

func newTickClock(s *smf.SMF) (*tickClock, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported time format %v", s.TimeFormat)
	}
	res := int(uint16(mt))
	if res <= 0 {
		return nil, fmt.Errorf("invalid resolution %d", res)
	}

	type change struct {
		tick int64
		bpm  float64
	}
	var changes []change
	for _, tr := range s.Tracks {
		var abs int64
		for _, ev := range tr {
			abs += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				changes = append(changes, change{abs, bpm})
			}
		}
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].tick < changes[j].tick })

	c := &tickClock{resolution: res}
	c.points = append(c.points, tempoPoint{usPerTick: 60e6 / defaultBPM / float64(res), bpm: defaultBPM})
	for _, ch := range changes {
		last := &c.points[len(c.points)-1]
		p := tempoPoint{
			tick:      ch.tick,
			micros:    last.micros + float64(ch.tick-last.tick)*last.usPerTick,
			usPerTick: 60e6 / ch.bpm / float64(res),
			bpm:       ch.bpm,
		}
		if p.tick == last.tick {
			// Later change at the same tick wins.
			*last = p
			continue
		}
		c.points = append(c.points, p)
	}
	return c, nil
}

func (c *tickClock) seconds(tick int64) float64 {
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].tick > tick }) - 1
	if i < 0 {
		i = 0
	}
	p := c.points[i]
	return (p.micros + float64(tick-p.tick)*p.usPerTick) / 1e6
}

// initialBPM reports the tempo at tick 0. SMF stores whole microseconds per
// quarter, so the value is rounded back to what the author wrote.
func (c *tickClock) initialBPM() float64 {
	return math.Round(c.points[0].bpm*1000) / 1000
}
