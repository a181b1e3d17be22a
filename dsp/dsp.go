package dsp

import (
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// SlewLimiter limits how fast a control signal may move (no heap allocations in Process)
type SlewLimiter struct {
	rise float32 // max increase per sample
	fall float32 // max decrease per sample
	out  float32
}

// NewSlewLimiter creates a slew limiter moving at most unitsPerSecond in either direction
func NewSlewLimiter(unitsPerSecond, sampleRate float32) *SlewLimiter {
	s := &SlewLimiter{}
	s.SetRate(unitsPerSecond, sampleRate)
	return s
}

// SetRiseFall sets the per-sample limits. A non-positive limit disables limiting in that direction.
func (s *SlewLimiter) SetRiseFall(rise, fall float32) {
	s.rise = rise
	s.fall = fall
}

// SetRate sets a symmetric limit in units per second
func (s *SlewLimiter) SetRate(unitsPerSecond, sampleRate float32) {
	d := SlewDelta(unitsPerSecond, sampleRate)
	s.rise, s.fall = d, d
}

// Process moves the output toward target and returns it
func (s *SlewLimiter) Process(target float32) float32 {
	diff := target - s.out
	switch {
	case diff > 0 && s.rise > 0 && diff > s.rise:
		s.out += s.rise
	case diff < 0 && s.fall > 0 && -diff > s.fall:
		s.out -= s.fall
	default:
		s.out = target
	}
	return s.out
}

// Value returns the current output
func (s *SlewLimiter) Value() float32 {
	return s.out
}

// Reset jumps the output to value
func (s *SlewLimiter) Reset(value float32) {
	s.out = value
}

// SlewDelta converts a rate in units per second to a per-sample step.
// Zero means unlimited.
func SlewDelta(unitsPerSecond, sampleRate float32) float32 {
	if unitsPerSecond <= 0 || sampleRate <= 0 {
		return 0
	}
	return unitsPerSecond / sampleRate
}

// Slew moves current toward target by at most delta. delta <= 0 jumps straight
// to target. Used by banks of filters kept as plain float32 arrays.
func Slew(current, target, delta float32) float32 {
	if delta <= 0 {
		return target
	}
	diff := target - current
	if diff > delta {
		return current + delta
	}
	if diff < -delta {
		return current - delta
	}
	return target
}

// Schmitt trigger thresholds in volts
const (
	TriggerLow  = 0.1
	TriggerHigh = 1.0
)

// SchmittTrigger detects rising edges with hysteresis
type SchmittTrigger struct {
	high bool
}

// Process returns true on the sample where v crosses TriggerHigh from the low state
func (t *SchmittTrigger) Process(v float32) bool {
	if t.high {
		if v <= TriggerLow {
			t.high = false
		}
		return false
	}
	if v >= TriggerHigh {
		t.high = true
		return true
	}
	return false
}

// IsHigh reports the current gate state
func (t *SchmittTrigger) IsHigh() bool {
	return t.high
}

// Reset returns the trigger to the low state
func (t *SchmittTrigger) Reset() {
	t.high = false
}

// ExpCurve maps x in [0,1] exponentially onto [lo,hi]. Falls back to a linear
// map when a bound is not positive.
func ExpCurve(x, lo, hi float32) float32 {
	x = Clamp(x, 0, 1)
	if lo <= 0 || hi <= 0 {
		return lo + x*(hi-lo)
	}
	k := float32(math.Log(float64(hi) / float64(lo)))
	return lo * approx.FastExp(x*k)
}

// Clamp limits x to [lo, hi]
func Clamp(x, lo, hi float32) float32 {
	return float32(dspcore.Clamp(float64(x), float64(lo), float64(hi)))
}

// FlushDenormals converts denormal numbers to zero to avoid performance issues
func FlushDenormals(x float32) float32 {
	return float32(dspcore.FlushDenormals(float64(x)))
}
