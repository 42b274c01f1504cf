package effects

import (
	"math"
	"testing"
)

func TestReverbProducesTail(t *testing.T) {
	r := NewReverb(44100, 0.5, 0.7, 0.5)
	r.Process(1.0, 1.0)
	var maxL, maxR float32
	for i := 0; i < 10000; i++ {
		l, rr := r.Process(0, 0)
		if l > maxL {
			maxL = l
		}
		if rr > maxR {
			maxR = rr
		}
	}
	if maxL < 0.001 || maxR < 0.001 {
		t.Fatalf("expected reverb tail on both channels, got l=%f r=%f", maxL, maxR)
	}
}

func TestReverbResetSilencesTail(t *testing.T) {
	r := NewReverb(44100, 0.5, 0.9, 1)
	for i := 0; i < 100; i++ {
		r.Process(1, 1)
	}
	r.Reset()
	for i := 0; i < 5000; i++ {
		l, rr := r.Process(0, 0)
		if l != 0 || rr != 0 {
			t.Fatalf("frame %d after reset = (%f, %f), want silence", i, l, rr)
		}
	}
}

func TestLimiterHoldsCeiling(t *testing.T) {
	m := NewLimiter(48000, -6, 50)
	ceiling := float32(math.Pow(10, -6.0/20))
	for i := 0; i < 1000; i++ {
		l, r := m.Process(1.5, -1.2)
		if l > ceiling+1e-6 || -r > ceiling+1e-6 {
			t.Fatalf("frame %d exceeded ceiling: l=%f r=%f", i, l, r)
		}
	}
	if m.Gain() >= 1 {
		t.Fatalf("expected gain reduction, got %f", m.Gain())
	}
}

func TestLimiterRecovers(t *testing.T) {
	m := NewLimiter(48000, 0, 10)
	m.Process(4, 4)
	for i := 0; i < 48000; i++ {
		m.Process(0.1, 0.1)
	}
	if g := m.Gain(); g < 0.99 {
		t.Fatalf("gain did not recover, got %f", g)
	}
}

func TestLimiterPassesQuietSignal(t *testing.T) {
	m := NewLimiter(48000, -1, 80)
	l, r := m.Process(0.2, -0.3)
	if l != 0.2 || r != -0.3 {
		t.Fatalf("quiet frame altered: l=%f r=%f", l, r)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		spec    string
		wantErr bool
	}{
		{spec: "reverb"},
		{spec: "reverb 0.3, 0.6, 0.2"},
		{spec: "LIMITER -3,100"},
		{spec: "limit"},
		{spec: "", wantErr: true},
		{spec: "flanger 1", wantErr: true},
		{spec: "reverb 0.3,abc", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.spec, func(t *testing.T) {
			e, err := Parse(tc.spec, 48000)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tc.spec, err)
			}
			if e == nil {
				t.Fatalf("nil effect for %q", tc.spec)
			}
		})
	}
}

func TestParseChainKeepsOrder(t *testing.T) {
	c, err := ParseChain([]string{"reverb 0.5,0.5,0", "limiter -20,10"}, 48000)
	if err != nil {
		t.Fatalf("parse chain: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("chain len = %d, want 2", c.Len())
	}
	// Dry reverb then a -20 dB limiter: a full-scale frame ends near 0.1.
	l, _ := c.Process(1, 1)
	if math.Abs(float64(l)-0.1) > 0.001 {
		t.Fatalf("chain output = %f, want ~0.1", l)
	}
	empty, err := ParseChain(nil, 48000)
	if err != nil || empty != nil {
		t.Fatalf("empty chain = (%v, %v), want (nil, nil)", empty, err)
	}
}
