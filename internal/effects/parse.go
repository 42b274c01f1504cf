package effects

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse builds an effect from a configuration string of the form
// "type p1,p2,...". Missing parameters take defaults.
//
//	reverb  room, feedback, wet        (0.5, 0.7, 0.25)
//	limiter ceiling dB, release ms     (-1, 80)
func Parse(spec string, sampleRate int) (Effector, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty effect")
	}
	parts := strings.SplitN(spec, " ", 2)
	kind := strings.ToLower(parts[0])
	var params []float64
	if len(parts) > 1 {
		for _, raw := range strings.Split(parts[1], ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("effect %q: bad parameter %q", kind, raw)
			}
			params = append(params, v)
		}
	}
	param := func(idx int, def float64) float32 {
		if idx < len(params) {
			return float32(params[idx])
		}
		return float32(def)
	}
	switch kind {
	case "reverb":
		return NewReverb(sampleRate, param(0, 0.5), param(1, 0.7), param(2, 0.25)), nil
	case "limiter", "limit":
		return NewLimiter(sampleRate, param(0, -1), param(1, 80)), nil
	}
	return nil, fmt.Errorf("unknown effect %q", kind)
}

// ParseChain parses every spec in order. An empty list yields a nil chain.
func ParseChain(specs []string, sampleRate int) (*Chain, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	chain := NewChain()
	for _, s := range specs {
		e, err := Parse(s, sampleRate)
		if err != nil {
			return nil, err
		}
		chain.Add(e)
	}
	return chain, nil
}
