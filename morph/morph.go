// Package morph maps a continuous morph control onto the three scenes.
//
// The raw value is wrapped into [-Range, Range]. Each unit of travel crosses
// from one scene to the next: positive travel walks the scenes forward from
// the base scene, negative travel walks them backward. At every integer
// position the morph is settled on exactly one scene and Magnitude is zero.
package morph

import "math"

// Range is the wrapped half-width of the morph domain.
const Range = 3

const numScenes = 3

// State is the resolved morph position for one channel.
type State struct {
	Wrapped   float32
	Center    int
	Forward   int
	Backward  int
	Magnitude float32 // blend toward Forward, in [0,1]
}

// Settled reports whether the state sits exactly on Center with no blend.
func (s State) Settled() bool {
	return s.Magnitude == 0
}

// Nearest returns the scene carrying most of the weight.
func (s State) Nearest() int {
	if s.Magnitude > 0.5 {
		return s.Forward
	}
	return s.Center
}

// Wrap folds m into [-Range, Range] as a period-6 sawtooth: travel past +3
// re-enters at -3 and keeps ramping. Non-finite input resolves to 0.
func Wrap(m float32) float32 {
	v := float64(m)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v >= -Range && v <= Range {
		return m
	}
	w := math.Mod(v+Range, 2*Range)
	if w < 0 {
		w += 2 * Range
	}
	w -= Range
	if w > Range {
		w = Range
	}
	return float32(w)
}

func mod3(x int) int {
	x %= numScenes
	if x < 0 {
		x += numScenes
	}
	return x
}

func settled(st State, scene int) State {
	st.Center, st.Forward, st.Backward = scene, scene, scene
	st.Magnitude = 0
	return st
}

// Resolve maps the raw morph value m onto scenes relative to base+offset.
// With ring set the center stays on the base scene and the morph swings
// toward a neighbor and back over the full range.
func Resolve(m float32, base, offset int, ring bool) State {
	w := Wrap(m)
	b := mod3(base + offset)
	st := State{Wrapped: w}

	sign := 1
	a := w
	if w < 0 {
		sign = -1
		a = -w
	}

	if ring {
		return resolveRing(st, a, b, sign)
	}

	k := int(a)
	f := a - float32(k)

	// Integer positions land exactly on a scene. The band arithmetic above is
	// exact there, so the equality check is intentional.
	if f == 0 {
		return settled(st, mod3(b+sign*k))
	}

	c := b + sign*k
	st.Center = mod3(c)
	st.Forward = mod3(c + sign)
	st.Backward = mod3(c + 2*sign)
	st.Magnitude = f
	return st
}

// resolveRing blends base toward its neighbor on a doubled ramp that holds
// full blend up to 2 and folds back to the base over 2..3.
func resolveRing(st State, a float32, b, sign int) State {
	var mag float32
	if a > 2 {
		mag = Range - a
	} else {
		mag = min(2*a, 1)
	}
	if mag <= 0 {
		return settled(st, b)
	}
	st.Center = b
	st.Forward = mod3(b + sign)
	st.Backward = mod3(b + 2*sign)
	st.Magnitude = mag
	return st
}

// PhaseVoltage rescales a wrapped morph position to 0..10V, or ±5V when
// bipolar is set.
func PhaseVoltage(wrapped float32, bipolar bool) float32 {
	if bipolar {
		return wrapped / Range * 5
	}
	return (wrapped + Range) / (2 * Range) * 10
}
